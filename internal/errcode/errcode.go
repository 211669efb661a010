package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（请求被拒但服务正常）
// - 5xxx：系统或外部依赖错误
const (
	OK              = 0
	InvalidRequest  = 4000
	PinMismatch     = 4001
	ResourceMissing = 4004
	GenerationBusy  = 4009
	EmptySeedGoal   = 4022
	SystemError     = 5000
	CollaboratorBad = 5002
)
