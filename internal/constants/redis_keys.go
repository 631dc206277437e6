package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "resume_parser"

	// LLMModulePrefix 模型调用模块
	LLMModulePrefix = "llm"

	// EntityResponse 模型响应实体
	EntityResponse = "response"

	// KeyLLMResponse 模型响应缓存 (STRING)
	// 格式: resume_parser:llm:response:{model}:{sha256}
	KeyLLMResponse = AppPrefix + ":" + LLMModulePrefix + ":" + EntityResponse + ":%s:%s"
)
