package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drcash-dev/drcash/internal/commands"
)

const bankCSV = "국민은행 거래내역\n거래일시,적요,거래처,출금액,입금액\n2025-01-03 10:12:00,GITHUB,,4000,\n2025-01-05 12:30:00,점심,김밥천국,12000,\n2025-01-09 09:00:00,급여,ACME,,3500000\n"

const taxCSV = "작성일자,상호,품목,합계금액\n2025-01-03,깃허브,구독료,4000\n2025-01-05,김밥천국,식대,12000\n"

// runDrcash executes the CLI in-process and returns its stdout. Logs and
// cobra's error messages go to a separate buffer.
func runDrcash(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, stderr bytes.Buffer
	root := commands.NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
