package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the errors into one error, nil when there are none
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(v.Errors, "; "))
}

// ScheduleParser accepts standard five-field specs, an optional leading
// seconds field and descriptors such as @every 15m
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong
// with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Scraper.URL = strings.TrimSpace(out.Scraper.URL)
	out.Scraper.ServiceTypeID = strings.TrimSpace(out.Scraper.ServiceTypeID)
	out.Scraper.LocationsToMonitor = trimList(out.Scraper.LocationsToMonitor)
	out.Email.Recipients = trimList(out.Email.Recipients)
	out.Email.Sender = strings.TrimSpace(out.Email.Sender)
	out.Notify.Provider = out.Provider()
	out.Schedule.Cron = strings.TrimSpace(out.Schedule.Cron)
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))

	// scraper
	if out.Scraper.URL == "" {
		res.addErr("scraper.url is required")
	} else if u, err := url.Parse(out.Scraper.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		res.addErr("scraper.url must be an absolute http(s) URL: %q", out.Scraper.URL)
	}
	if out.Scraper.WaitTimeoutSeconds <= 0 {
		res.addErr("scraper.wait_timeout_seconds must be > 0")
	}
	if out.Scraper.RunTimeoutSeconds <= 0 {
		res.addErr("scraper.run_timeout_seconds must be > 0")
	} else if out.Scraper.RunTimeoutSeconds < out.Scraper.WaitTimeoutSeconds {
		res.addWarn("scraper.run_timeout_seconds (%d) is shorter than one wait (%d); runs will be cut off.",
			out.Scraper.RunTimeoutSeconds, out.Scraper.WaitTimeoutSeconds)
	}
	if out.Scraper.ServiceTypeID == "" {
		res.addErr("scraper.service_type_id is required")
	}
	if len(out.Scraper.LocationsToMonitor) == 0 {
		res.addWarn("scraper.locations_to_monitor is empty; nothing will be reported.")
	}

	// schedule
	if out.Schedule.Cron == "" {
		res.addErr("schedule.cron is required")
	} else if _, err := ScheduleParser.Parse(out.Schedule.Cron); err != nil {
		res.addErr("schedule.cron %q: %v", out.Schedule.Cron, err)
	}

	// notify
	if out.Notify.TimeoutSeconds <= 0 {
		res.addErr("notify.timeout_seconds must be > 0")
	}
	switch out.Notify.Provider {
	case ProviderSendGrid:
		validateEmail(out, &res)
		if out.Email.APIKey == "" && out.Email.KeyringAccount == "" {
			res.addErr("email.api_key (or %s, or email.keyring_account) is required when notify.provider=sendgrid", EnvSendGridAPIKey)
		}
	case ProviderSMTP:
		validateEmail(out, &res)
		if strings.TrimSpace(out.Email.SMTP.Host) == "" {
			res.addErr("email.smtp.host is required when notify.provider=smtp")
		}
		if out.Email.SMTP.Port <= 0 || out.Email.SMTP.Port > 65535 {
			res.addErr("email.smtp.port must be between 1 and 65535")
		}
	case ProviderLine:
		if strings.TrimSpace(out.Line.ChannelToken) == "" {
			res.addErr("line.channel_token (or %s) is required when notify.provider=line", EnvLineChannelToken)
		}
		if strings.TrimSpace(out.Line.UserID) == "" {
			res.addErr("line.user_id (or %s) is required when notify.provider=line", EnvLineUserID)
		}
	case ProviderNone:
		res.addWarn("notify.provider is none; results are only logged.")
	default:
		res.addErr("notify.provider %q is not one of sendgrid, smtp, line, none", out.Notify.Provider)
	}

	// log
	switch out.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		res.addErr("log.level %q is not one of debug, info, warn, error", out.Log.Level)
	}
	if strings.TrimSpace(out.Log.Dir) == "" {
		res.addErr("log.dir is required")
	}
	if strings.TrimSpace(out.Store.Path) == "" {
		res.addErr("store.path is required")
	}

	return out, res
}

func validateEmail(cfg Config, res *Validation) {
	if cfg.Email.Sender == "" {
		res.addErr("email.sender is required when notify.provider=%s", cfg.Notify.Provider)
	}
	if len(cfg.Email.Recipients) == 0 {
		res.addErr("email.recipients must not be empty when notify.provider=%s", cfg.Notify.Provider)
	}
	for _, r := range cfg.Email.Recipients {
		if !strings.Contains(r, "@") {
			res.addWarn("email recipient %q does not look like an address.", r)
		}
	}
}
