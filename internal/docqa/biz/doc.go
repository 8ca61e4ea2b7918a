// Package biz 提供文档问答服务的业务逻辑层。
//
// 该包采用分层架构，将业务逻辑拆分为以下组件：
//   - Ingestor: 负责文档摄取（枚举、加载、分块、嵌入、入库、标记）
//   - Retriever: 负责检索（向量搜索、阈值过滤、兜底回退）
//   - PromptAssembler: 负责提示词组装（上下文注入或通用知识回退）
//   - Classifier: 负责意图分类（conversation / document）
//   - Service: 组合以上组件，提供统一的服务接口
package biz
