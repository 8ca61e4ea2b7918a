package errors

// DocQA 服务代码: 20 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 20 (DocQA 服务)
// - BB: 类别代码
// - CCC: 序号

var (
	// 通用错误 (服务 00)
	ErrInternal     = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1), 500, "Internal server error", "服务器内部错误"))
	ErrInvalidParam = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), 400, "Invalid request parameters", "请求参数无效"))

	// 推理相关错误 (类别 07 - Internal)
	ErrInferenceFailed  = Register(New(MakeCode(ServiceDocQA, CategoryInternal, 1), 500, "Inference failed", "推理失败"))
	ErrGenerationFailed = Register(New(MakeCode(ServiceDocQA, CategoryInternal, 2), 500, "Answer generation failed", "答案生成失败"))

	// 检索与存储错误
	ErrVectorStore   = Register(New(MakeCode(ServiceDocQA, CategoryDatabase, 1), 500, "Vector store operation failed", "向量存储操作失败"))
	ErrRetrieveEmbed = Register(New(MakeCode(ServiceDocQA, CategoryInternal, 3), 500, "Query embedding failed", "查询向量化失败"))

	// 摄取相关错误
	ErrIngestionFailed = Register(New(MakeCode(ServiceDocQA, CategoryInternal, 4), 500, "Document ingestion failed", "文档摄取失败"))
	ErrUploadFailed    = Register(New(MakeCode(ServiceDocQA, CategoryRequest, 2), 400, "File upload failed", "文件上传失败"))

	// 服务相关错误 (类别 10 - Network)
	ErrLLMUnavailable = Register(New(MakeCode(ServiceDocQA, CategoryNetwork, 1), 503, "Generation service unavailable", "生成服务不可用"))
)
