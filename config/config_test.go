package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/txpump/pkg/types"
)

func testnetAddress() string {
	return types.NewEnterpriseAddress(types.NetworkIDTestnet, [types.KeyHashSize]byte{0x01}).String()
}

func mainnetAddress() string {
	return types.NewEnterpriseAddress(types.NetworkIDMainnet, [types.KeyHashSize]byte{0x01}).String()
}

func noEnv(string) string { return "" }

func baseArgs() []string {
	return []string{
		"--network=preprod",
		"--destination=" + testnetAddress(),
		"--node-url=http://127.0.0.1:1337",
		"--submit-url=http://127.0.0.1:8090",
	}
}

func load(t *testing.T, args []string, env map[string]string) (*Config, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cfg, _, err := Load(args, func(k string) string { return env[k] }, &out, &errOut)
	return cfg, err
}

func TestParseNetwork(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"mainnet", MainnetMagic, false},
		{"Preprod", PreprodMagic, false},
		{"preview", PreviewMagic, false},
		{"764824073", MainnetMagic, false},
		{" 2 ", PreviewMagic, false},
		{"42", 0, true},
		{"0", 0, true},
		{"testnet", 0, true},
		{"-1", 0, true},
		{"4294967296", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseNetwork(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNetworkID(t *testing.T) {
	assert.Equal(t, types.NetworkIDMainnet, NetworkID(MainnetMagic))
	assert.Equal(t, types.NetworkIDTestnet, NetworkID(PreprodMagic))
	assert.Equal(t, types.NetworkIDTestnet, NetworkID(PreviewMagic))
}

func TestLoad_DefaultsAndFlags(t *testing.T) {
	cfg, err := load(t, baseArgs(), nil)
	require.NoError(t, err)

	assert.Equal(t, PreprodMagic, cfg.NetworkMagic)
	assert.Equal(t, testnetAddress(), cfg.DestinationAddr.String())
	assert.Equal(t, uint64(1_000_000), cfg.Driver.Amount)
	assert.Equal(t, time.Second, cfg.Driver.RetryDelay)
	assert.Equal(t, 5, cfg.Driver.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Submit.Timeout)
	assert.Equal(t, uint64(44), cfg.FeeParams().MinFeeA)
	assert.Equal(t, uint64(155381), cfg.FeeParams().MinFeeB)
	assert.Zero(t, cfg.FeeParams().CoinsPerUTxOByte)
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txpump.conf")
	conf := `# test
network = preview
destination = "` + testnetAddress() + `"
node.url = http://node:1337
submit.url = http://submit:8090
amount = 2000000
driver.rate_limit = 2.5
driver.retry_delay = 250ms
wallet.mnemonic = from file
log.level = debug
`
	require.NoError(t, os.WriteFile(path, []byte(conf), 0600))

	cfg, err := load(t, []string{"-c", path, "--amount=3000000", "--insecure-tls"},
		map[string]string{EnvMnemonic: "  from env  ", EnvPassword: "pw"})
	require.NoError(t, err)

	assert.Equal(t, PreviewMagic, cfg.NetworkMagic)
	assert.Equal(t, uint64(3_000_000), cfg.Driver.Amount, "flag beats file")
	assert.Equal(t, 2.5, cfg.Driver.RateLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Driver.RetryDelay)
	assert.Equal(t, "from env", cfg.Wallet.Mnemonic, "env beats file")
	assert.Equal(t, "pw", cfg.Wallet.Password)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Node.InsecureTLS)
	assert.True(t, cfg.Submit.InsecureTLS)
}

func TestLoad_ZeroFlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txpump.conf")
	require.NoError(t, os.WriteFile(path, []byte("driver.rate_limit = 5\n"), 0600))

	cfg, err := load(t, append(baseArgs(), "--config="+path, "--rate-limit=0"), nil)
	require.NoError(t, err)
	assert.Zero(t, cfg.Driver.RateLimit)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown network", []string{"--network=testnet"}},
		{"mainnet destination on preprod", []string{"--destination=" + mainnetAddress()}},
		{"bad destination", []string{"--destination=addr_test1notanaddress"}},
		{"zero amount", []string{"--amount=0"}},
		{"zero retries", []string{"--max-retries=0"}},
		{"negative rate", []string{"--rate-limit=-1"}},
		{"bad node url", []string{"--node-url=127.0.0.1:1337"}},
		{"bad log level", []string{"--log-level=loud"}},
		{"stray argument", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, append(baseArgs(), tt.args...), nil)
			assert.Error(t, err)
		})
	}

	_, err := load(t, []string{"--destination=" + testnetAddress()}, nil)
	assert.ErrorContains(t, err, "network is required")
}

func TestLoad_MnemonicAndKeyfileExclusive(t *testing.T) {
	_, err := load(t, append(baseArgs(), "--keyfile=k.json"), map[string]string{EnvMnemonic: "words"})
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestLoad_FileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := load(t, append(baseArgs(), "-c", filepath.Join(dir, "missing.conf")), nil)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.conf")
	require.NoError(t, os.WriteFile(bad, []byte("no equals sign\n"), 0600))
	_, err = load(t, append(baseArgs(), "-c", bad), nil)
	assert.ErrorContains(t, err, "line 1")

	unknown := filepath.Join(dir, "unknown.conf")
	require.NoError(t, os.WriteFile(unknown, []byte("p2p.port = 30303\n"), 0600))
	_, err = load(t, append(baseArgs(), "-c", unknown), nil)
	assert.ErrorContains(t, err, "p2p.port")

	badValue := filepath.Join(dir, "value.conf")
	require.NoError(t, os.WriteFile(badValue, []byte("driver.retry_delay = soon\n"), 0600))
	_, err = load(t, append(baseArgs(), "-c", badValue), nil)
	assert.Error(t, err)
}

func TestLoad_Commands(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Load([]string{"--version"}, noEnv, &out, &out)
	assert.ErrorIs(t, err, ErrExit)
	assert.Contains(t, out.String(), Version)

	out.Reset()
	_, _, err = Load([]string{"-h"}, noEnv, &out, &out)
	assert.ErrorIs(t, err, ErrExit)
	assert.Contains(t, out.String(), "Usage:")
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txpump.conf")
	var out bytes.Buffer
	_, _, err := Load([]string{"--write-config", path}, noEnv, &out, &out)
	require.ErrorIs(t, err, ErrExit)

	// The generated file loads once a destination is supplied.
	cfg, err := load(t, []string{"-c", path, "--destination=" + testnetAddress()}, nil)
	require.NoError(t, err)
	assert.Equal(t, PreprodMagic, cfg.NetworkMagic)
	assert.Equal(t, Default().Driver, cfg.Driver)
	assert.Equal(t, Default().Fee, cfg.Fee)
	assert.Equal(t, "http://127.0.0.1:1337", cfg.Node.URL)

	// Never overwrites.
	assert.Error(t, WriteDefaultConfig(path))
}
