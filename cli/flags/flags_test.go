package flags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestStringSliceToUintArray(t *testing.T) {
	ids, err := StringSliceToUintArray([]string{"1", " 22", "333"})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 22, 333}, ids)

	_, err = StringSliceToUintArray([]string{"1", "x"})
	require.Error(t, err)
	_, err = StringSliceToUintArray([]string{"-1"})
	require.Error(t, err)
}

func signCmd(t *testing.T, args ...string) *cobra.Command {
	viper.Reset()
	cmd := &cobra.Command{Use: "sign"}
	SetSignFlags(cmd)
	require.NoError(t, cmd.PersistentFlags().Parse(args))
	return cmd
}

func TestBindSignFlags(t *testing.T) {
	dir := t.TempDir()
	peers := filepath.Join(dir, "peers.json")
	require.NoError(t, os.WriteFile(peers, []byte("[]"), 0o600))
	base := []string{"--peersInfoPath", peers, "--outputPath", filepath.Join(dir, "out")}

	t.Run("valid", func(t *testing.T) {
		cmd := signCmd(t, append(base, "--ceremonyID", "3", "--keyID", "ab", "--message", "0xdeadbeef", "--signers", "4,5")...)
		require.NoError(t, BindSignFlags(cmd))
		require.Equal(t, uint64(3), CeremonyID)
		require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, Message)
		require.Equal(t, []uint64{4, 5}, Signers)
	})
	t.Run("missing ceremony id", func(t *testing.T) {
		cmd := signCmd(t, append(base, "--keyID", "ab", "--message", "aa")...)
		require.ErrorContains(t, BindSignFlags(cmd), "ceremony ID")
	})
	t.Run("message not hex", func(t *testing.T) {
		cmd := signCmd(t, append(base, "--ceremonyID", "3", "--keyID", "ab", "--message", "zz")...)
		require.ErrorContains(t, BindSignFlags(cmd), "hex")
	})
	t.Run("traversal", func(t *testing.T) {
		cmd := signCmd(t, "--peersInfoPath", "../peers.json", "--outputPath", filepath.Join(dir, "out"), "--ceremonyID", "3")
		require.ErrorContains(t, BindSignFlags(cmd), "peersInfoPath")
	})
}

func TestBindNodeFlags(t *testing.T) {
	dir := t.TempDir()
	newCmd := func(args ...string) *cobra.Command {
		viper.Reset()
		cmd := &cobra.Command{Use: "start-node"}
		SetNodeFlags(cmd)
		require.NoError(t, cmd.PersistentFlags().Parse(args))
		return cmd
	}
	base := []string{"--privKey", filepath.Join(dir, "key"), "--peersInfoPath", filepath.Join(dir, "peers.json"), "--outputPath", filepath.Join(dir, "out")}

	require.NoError(t, BindNodeFlags(newCmd(append(base, "--operatorID", "2", "--curve", "bls12381", "--stageTimeout", "3s")...)))
	require.Equal(t, uint64(2), OperatorID)
	require.Equal(t, "bls12381", Curve)
	require.Equal(t, "3s", StageTimeout.String())

	require.ErrorContains(t, BindNodeFlags(newCmd(base...)), "operator ID")
	require.ErrorContains(t, BindNodeFlags(newCmd(append(base, "--operatorID", "2", "--curve", "p256")...)), "unsupported curve")
	require.ErrorContains(t, BindNodeFlags(newCmd(append(base, "--operatorID", "2", "--tickInterval", "0s")...)), "tickInterval")
}
