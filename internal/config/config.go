package config

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	Bank struct {
		// DelayMs simulates the latency of the bank gateway.
		DelayMs int
	}
	Blacklist struct {
		Mode string
	}
	RedisServer  string
	KafkaServers string
}
