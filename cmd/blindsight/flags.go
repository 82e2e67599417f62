package main

import (
	"github.com/spf13/pflag"
)

// flagKeys maps flag names to config keys. Only the flags of the command
// being run are bound, so scan and lab can share names.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"output":     "output.store",
	"output-dir": "output.directory",
	"format":     "output.format",

	"url":         "target.url",
	"cookie-name": "target.cookie_name",
	"tracking-id": "target.tracking_id",
	"cookie":      "target.cookies",
	"header":      "target.headers",
	"marker":      "target.success_marker",
	"match-text":  "target.match_text",
	"invert":      "target.invert",
	"encode":      "target.encode_payload",
	"timeout":     "target.timeout",
	"proxy":       "target.proxy",
	"insecure":    "target.insecure_skip_verify",

	"max-rows":      "scan.max_rows",
	"tables":        "scan.tables",
	"dialect":       "scan.dialects",
	"strategy":      "scan.strategy",
	"char-workers":  "scan.char_workers",
	"table-workers": "scan.table_workers",
	"preflight":     "scan.preflight",
	"policy":        "scan.failure_policy",
	"retries":       "scan.retry_attempts",
	"escalations":   "scan.ceilings.escalations",

	"driver":        "lab.driver",
	"dsn":           "lab.dsn",
	"query-timeout": "lab.query_timeout",

	"addr": "serve.addr",
}

// bindFlags ties every known flag in fs to its config key. Flags the user
// did not set leave env, file and default values in place.
func (a *app) bindFlags(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = a.v.BindPFlag(key, f)
	})
	return err
}

// addScanFlags registers the engine settings shared by scan and lab.
func addScanFlags(f *pflag.FlagSet) {
	f.Int("max-rows", 10, "rows to extract per table; 0 extracts the schema only")
	f.StringSlice("tables", nil, "only enumerate these tables")
	f.StringSlice("dialect", nil, "dialects to fingerprint, in order (default: all)")
	f.String("strategy", "scan", "character strategy: scan or bisect")
	f.Int("char-workers", 1, "positions of one string resolved concurrently")
	f.Int("table-workers", 1, "tables enumerated concurrently")
	f.Bool("preflight", true, "check that the oracle separates true from false first")
	f.String("policy", "false-on-error", "failure policy: false-on-error or retry-then-fail")
	f.Int("retries", 3, "attempts per probe under retry-then-fail")
	f.Int("escalations", 0, "times a saturated count ceiling is doubled")
	f.Bool("no-progress", false, "disable the terminal progress bar")
}
