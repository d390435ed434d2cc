// Package kafkaenv loads client configuration from environment
// variables via cleanenv, the way vk-rv-warnly's cmd/warnly/main.go
// loads its own Kafka section, and turns the result into kafka.Opt
// values ready to hand to kafka.NewClient.
package kafkaenv

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/knactor/kafka"
	"github.com/knactor/kafka/sasl"
	"github.com/knactor/kafka/sasl/plain"
	"github.com/knactor/kafka/sasl/scram"
)

// Config is the environment-variable schema for a Kafka client. Load
// populates it with cleanenv.ReadEnv; ToOpts turns it into kafka.Opt
// values.
type Config struct {
	ClientID       string        `env:"KAFKA_CLIENT_ID"        env-default:"knactor-kafka"`
	Brokers        []string      `env:"KAFKA_BROKERS"          env-required:"true"`
	MetadataMaxAge time.Duration `env:"KAFKA_METADATA_MAX_AGE" env-default:"5m"`
	ConnectTimeout time.Duration `env:"KAFKA_CONNECT_TIMEOUT"  env-default:"10s"`
	RequestTimeout time.Duration `env:"KAFKA_REQUEST_TIMEOUT"  env-default:"30s"`
	Retries        int           `env:"KAFKA_RETRIES"          env-default:"5"`
	RetryDelay     time.Duration `env:"KAFKA_RETRY_DELAY"      env-default:"100ms"`

	TLS struct {
		Enabled  bool   `env:"KAFKA_TLS_ENABLED"   env-default:"false"`
		CertFile string `env:"KAFKA_TLS_CERT_FILE"`
		KeyFile  string `env:"KAFKA_TLS_KEY_FILE"`
		CAFile   string `env:"KAFKA_TLS_CA_FILE"`
	}

	SASL struct {
		Plain struct {
			Enabled  bool   `env:"KAFKA_SASL_PLAIN_ENABLED" env-default:"false"`
			User     string `env:"KAFKA_SASL_PLAIN_USER"`
			Password string `env:"KAFKA_SASL_PLAIN_PASS"`
		}
		SCRAM struct {
			Enabled   bool   `env:"KAFKA_SASL_SCRAM_ENABLED"   env-default:"false"`
			Algorithm string `env:"KAFKA_SASL_SCRAM_ALGORITHM" env-default:"SCRAM-SHA-256"`
			User      string `env:"KAFKA_SASL_SCRAM_USER"`
			Password  string `env:"KAFKA_SASL_SCRAM_PASS"`
		}
	}
}

// Load reads a Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("kafkaenv: %w", err)
	}
	return cfg, nil
}

// ToOpts turns c into the kafka.Opt slice NewClient expects: seed
// brokers, timeouts/retries, and TLS/SASL if enabled.
func (c Config) ToOpts() ([]kafka.Opt, error) {
	opts := []kafka.Opt{
		kafka.WithSeedBrokers(c.Brokers...),
		kafka.WithClientID(c.ClientID),
		kafka.WithMetadataMaxAge(c.MetadataMaxAge),
		kafka.WithConnectTimeout(c.ConnectTimeout),
		kafka.WithRequestTimeout(c.RequestTimeout),
		kafka.WithRetries(c.Retries),
		kafka.WithRetryDelay(c.RetryDelay),
	}

	if c.TLS.Enabled {
		tlsCfg, err := c.tlsConfig()
		if err != nil {
			return nil, err
		}
		opts = append(opts, kafka.WithTLS(tlsCfg))
	}

	if mech, ok := c.saslMechanism(); ok {
		opts = append(opts, kafka.WithSASL(mech))
	}

	return opts, nil
}

func (c Config) tlsConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{}
	if c.TLS.CertFile != "" && c.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.TLS.CertFile, c.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("kafkaenv: loading client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	if c.TLS.CAFile != "" {
		pem, err := os.ReadFile(c.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("kafkaenv: reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("kafkaenv: no certificates found in %s", c.TLS.CAFile)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

func (c Config) saslMechanism() (sasl.Mechanism, bool) {
	switch {
	case c.SASL.SCRAM.Enabled:
		auth := scram.Auth{User: c.SASL.SCRAM.User, Password: c.SASL.SCRAM.Password}
		if c.SASL.SCRAM.Algorithm == "SCRAM-SHA-512" {
			return auth.AsSha512Mechanism(), true
		}
		return auth.AsSha256Mechanism(), true
	case c.SASL.Plain.Enabled:
		return plain.Auth{User: c.SASL.Plain.User, Password: c.SASL.Plain.Password}, true
	default:
		return nil, false
	}
}
