package kafkaenv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresBrokers(t *testing.T) {
	clearEnv(t, "KAFKA_BROKERS")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092,localhost:9093")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:9092", "localhost:9093"}, cfg.Brokers)
	require.Equal(t, "knactor-kafka", cfg.ClientID)
	require.Equal(t, 5, cfg.Retries)
}

func TestToOptsPlainSASL(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_SASL_PLAIN_ENABLED", "true")
	t.Setenv("KAFKA_SASL_PLAIN_USER", "alice")
	t.Setenv("KAFKA_SASL_PLAIN_PASS", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	opts, err := cfg.ToOpts()
	require.NoError(t, err)
	require.NotEmpty(t, opts)
}

func TestToOptsScramTakesPriorityOverPlain(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_SASL_PLAIN_ENABLED", "true")
	t.Setenv("KAFKA_SASL_SCRAM_ENABLED", "true")
	t.Setenv("KAFKA_SASL_SCRAM_USER", "bob")
	t.Setenv("KAFKA_SASL_SCRAM_PASS", "secret")
	t.Setenv("KAFKA_SASL_SCRAM_ALGORITHM", "SCRAM-SHA-512")

	cfg, err := Load()
	require.NoError(t, err)

	mech, ok := cfg.saslMechanism()
	require.True(t, ok)
	require.Equal(t, "SCRAM-SHA-512", mech.Name())
}

func TestTLSConfigRequiresCAFileForCustomRoots(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_TLS_ENABLED", "true")
	t.Setenv("KAFKA_TLS_CA_FILE", "/nonexistent/ca.pem")

	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.ToOpts()
	require.Error(t, err)
}
