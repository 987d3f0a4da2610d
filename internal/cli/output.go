package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sourcerack/sourcerack/internal/sqerr"
)

// print writes v to stdout and returns a *cobra compatible error carrying
// the right process exit code when success is false, per spec §6/§7's exit
// code table. Pretty JSON is always legible enough to serve as the
// "human" rendering too — SourceRack's query responses are inherently
// structured data, not prose.
func print(success bool, errMsg string, v interface{}) error {
	encoded, err := marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(encoded))

	if success {
		return nil
	}
	return exitError{msg: errMsg, code: exitCodeForMessage(errMsg)}
}

func marshal(v interface{}) ([]byte, error) {
	if jsonOutput {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// exitError carries a process exit code alongside its message so main can
// set os.Exit appropriately without cobra's default (always 1) behavior.
type exitError struct {
	msg  string
	code int
}

func (e exitError) Error() string { return e.msg }

// ExitCode extracts the code carried by an error returned from a query
// subcommand's RunE, defaulting to sqerr.ExitGeneralError for anything
// else (including ordinary cobra usage errors).
func ExitCode(err error) int {
	if err == nil {
		return int(sqerr.ExitSuccess)
	}
	var ee exitError
	if e, ok := err.(exitError); ok {
		ee = e
		return ee.code
	}
	return int(sqerr.ExitGeneralError)
}

// wrapErr converts a raw error returned by a non-query command (index, gc)
// into an exitError carrying its sqerr-mapped exit code, so Execute reports
// the same exit code table a query command's Response.Error would.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return exitError{msg: err.Error(), code: int(sqerr.ExitCodeFor(err))}
}

// exitCodeForMessage recovers the sqerr.Kind a Response.Error string was
// built from by checking its "<kind>: " prefix. The query engine never lets
// a bare Go error escape (spec §7), so every failure message carries this
// prefix already; the check against a bare Kind string, rather than a typed
// error, is the only way to classify it once it's crossed the Response
// boundary.
func exitCodeForMessage(msg string) int {
	kinds := []sqerr.Kind{
		sqerr.KindRepoNotIndexed,
		sqerr.KindSymbolNotFound,
		sqerr.KindNotAGitRepository,
		sqerr.KindUnknownRef,
		sqerr.KindInvalidArgument,
	}
	for _, k := range kinds {
		if strings.HasPrefix(msg, string(k)+":") {
			return int(sqerr.ExitCodeFor(sqerr.New(k, "", nil)))
		}
	}
	return int(sqerr.ExitGeneralError)
}
