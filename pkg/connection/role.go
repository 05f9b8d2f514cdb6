package connection

// Role 连接的身份，决定回复能否写出去
type Role uint8

const (
	RoleNormal Role = iota // 普通网络客户端
	RoleMaster             // 主库连过来的复制连接，默认不回复
	RoleScript             // 脚本/预加载使用的伪连接，回复留在内存中由调用方取走
	RolePseudo             // 没有对端的伪连接，回复直接丢弃
)

func (r Role) String() string {
	switch r {
	case RoleNormal:
		return "normal"
	case RoleMaster:
		return "master"
	case RoleScript:
		return "script"
	case RolePseudo:
		return "pseudo"
	default:
		return "unknown"
	}
}
