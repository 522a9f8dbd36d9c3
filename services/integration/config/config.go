package config

type Postgres struct {
	Host     string `json:"host,omitempty" koanf:"host"`
	Port     string `json:"port,omitempty" koanf:"port"`
	Username string `json:"username,omitempty" koanf:"username"`
	Password string `json:"password,omitempty" koanf:"password"`
	DB       string `json:"db,omitempty" koanf:"db"`
	SSLMode  string `json:"ssl_mode,omitempty" koanf:"ssl_mode"`
}

type HttpServer struct {
	Address string `json:"address,omitempty" koanf:"address"`
}

// Vault carries the process-wide secret-codec key, handed in from the
// deployment's secret source. Failure to load it is a fatal startup error.
type Vault struct {
	KeyID  string `json:"key_id,omitempty" koanf:"key_id"`
	KeyHex string `json:"-" koanf:"key_hex"`
}

type Auth struct {
	IssuerURL string `json:"issuer_url,omitempty" koanf:"issuer_url"`
	ClientID  string `json:"client_id,omitempty" koanf:"client_id"`
}

type Probe struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty" koanf:"timeout_seconds"`
}

type IntegrationConfig struct {
	Postgres Postgres   `json:"postgres,omitempty" koanf:"postgres"`
	Http     HttpServer `json:"http,omitempty" koanf:"http"`
	Vault    Vault      `json:"vault,omitempty" koanf:"vault"`
	Auth     Auth       `json:"auth,omitempty" koanf:"auth"`
	Probe    Probe      `json:"probe,omitempty" koanf:"probe"`
}

func Default() IntegrationConfig {
	return IntegrationConfig{
		Http: HttpServer{
			Address: ":8000",
		},
		Vault: Vault{
			KeyID: "v1",
		},
		Probe: Probe{
			TimeoutSeconds: 5,
		},
	}
}
