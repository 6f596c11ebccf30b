package banner

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"threadstream/pkg/config"
)

const banner = `
 _   _                        _     _                            
| |_| |__  _ __ ___  __ _  __| |___| |_ _ __ ___  __ _ _ __ ___  
| __| '_ \| '__/ _ \/ _' |/ _' / __| __| '__/ _ \/ _' | '_ ' _ \ 
| |_| | | | | |  __/ (_| | (_| \__ \ |_| | |  __/ (_| | | | | | |
 \__|_| |_|_|  \___|\__,_|\__,_|___/\__|_|  \___|\__,_|_| |_| |_|
`

// PrintWithEff prints the banner and a short summary of the effective config.
func PrintWithEff(eff config.EffectiveConfigResult, version string, threads int) {
	Fprint(os.Stdout, eff, version, threads)
}

// Fprint writes the banner to w.
func Fprint(w io.Writer, eff config.EffectiveConfigResult, version string, threads int) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}

	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "== Config =====================================================")
	fmt.Fprintf(w, "Listen:   %s\n", addr)
	if version != "" {
		fmt.Fprintf(w, "Version:  %s\n", version)
	}
	fmt.Fprintf(w, "Config:   %s", eff.Source())
	if eff.ConfigPath != "" && len(eff.Sources) > 0 && eff.Sources[0] == "file" {
		fmt.Fprintf(w, " (%s)", eff.ConfigPath)
	}
	fmt.Fprintln(w)

	cfg := eff.Config
	if cfg == nil {
		return
	}
	fmt.Fprintln(w, "\n== Runtime ====================================================")
	fmt.Fprintf(w, "- Stream window: %s\n", cfg.Stream.Duration)
	fmt.Fprintf(w, "- Max body: %s\n", cfg.Server.MaxBodySize)
	if cfg.Server.WriteTimeout == 0 {
		fmt.Fprintln(w, "- Write timeout: none")
	} else {
		fmt.Fprintf(w, "- Write timeout: %s\n", cfg.Server.WriteTimeout)
	}
	fmt.Fprintf(w, "- Rate limit: %s rps (burst %s)\n",
		humanize.Ftoa(cfg.Security.RateLimit.RPS), humanize.Comma(int64(cfg.Security.RateLimit.Burst)))
	fmt.Fprintf(w, "- CORS origins: %s\n", strings.Join(cfg.Security.CORS.AllowedOrigins, ", "))
	if cfg.Seed.IsEnabled() {
		fmt.Fprintf(w, "- Seed data: %s threads\n", humanize.Comma(int64(threads)))
	} else {
		fmt.Fprintln(w, "- Seed data: disabled")
	}
	if cfg.Sensor.MemHigh > 0 {
		fmt.Fprintf(w, "- Memory high mark: %s (poll %s)\n", cfg.Sensor.MemHigh, cfg.Sensor.PollInterval)
	}
	if cfg.Archive.Enabled {
		fmt.Fprintf(w, "- Archiver: enabled (cron=%s, idle_after=%s)\n", cfg.Archive.Cron, cfg.Archive.IdleAfter)
	} else {
		fmt.Fprintln(w, "- Archiver: disabled")
	}
	fmt.Fprintln(w)
}
