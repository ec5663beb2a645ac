package conf

import "github.com/iWorld-y/report_forge/app/report_forge/pkg/config"

type Bootstrap struct {
	Server *Server
	Data   *Data
	Forge  *config.Config `json:"forge"`
}

type Server struct {
	Http *HTTP
}

type HTTP struct {
	Addr    string
	Timeout string
}

type Data struct {
	Database *Database
}

// Database Driver 为空时使用内存存储
type Database struct {
	Driver string
	Source string
}
