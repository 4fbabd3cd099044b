package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug                        bool   `envconfig:"debug"`
	Port                         int    `envconfig:"port" default:"8080"`
	Env                          string `envconfig:"env"`
	BaseUrl                      string `envconfig:"base_url"`
	JWTSecret                    string `envconfig:"jwt_secret"`
	FirebaseProjectID            string `envconfig:"firebase_project_id" default:"achat-f2008"`
	FirebaseWebAPIKey            string `envconfig:"firebase_web_api_key"`
	GoogleApplicationCredentials string `envconfig:"google_application_credentials" default:"./google-services.json"`
	AwsRegion                    string `envconfig:"aws_region"`
	AwsBucket                    string `envconfig:"aws_bucket"`
	AwsAccessKeyID               string `envconfig:"aws_access_key_id"`
	AwsSecretAccessKey           string `envconfig:"aws_secret_access_key"`
	MailgunApiKey                string `envconfig:"mg_public_api_key"`
	MgDomain                     string `envconfig:"mg_domain"`
	MgEmailFrom                  string `envconfig:"email_from"`
	AccessControlAllowOrigin     string `envconfig:"access_control_allow_origin"`
	TypingIdleSeconds            int    `envconfig:"typing_idle_seconds" default:"2"`
}

// TypingIdle is the quiet interval after which a user's typing flag is reset.
func (c *Config) TypingIdle() time.Duration {
	return time.Duration(c.TypingIdleSeconds) * time.Second
}

func Load() (*Config, error) {
	env := os.Getenv("GIN_MODE")
	if env != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("achat", c)
	if err != nil {
		return nil, err
	}
	return c, nil
}
