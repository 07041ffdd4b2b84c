package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ParseModulePrefix 简历解析模块
	ParseModulePrefix = "parse"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntityJob 解析任务实体
	EntityJob = "job"
	// EntityMD5ToJob MD5到任务ID的映射实体
	EntityMD5ToJob = "md5_to_job"

	// KeyParseJob 解析任务状态和结果 (STRING, JSON)
	// 格式: app:parse:job:{jobID}
	KeyParseJob = AppPrefix + ":" + ParseModulePrefix + ":" + EntityJob + ":%s"

	// KeyFileMD5ToJob 原始文件MD5到任务ID的映射，用于重复提交检测 (STRING)
	// 格式: app:file:md5_to_job:{md5}
	KeyFileMD5ToJob = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToJob + ":%s"
)
