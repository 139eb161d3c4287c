/*
Package config loads eventlog deployment settings.

# Documents

Config wraps a decoded YAML or JSON document and provides typed accessors
that fall back to a default on a missing key or a type mismatch:

	cfg, err := config.FromFile("eventlog.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	ttl := cfg.Duration("lock_ttl", 30*time.Second)

Durations accept time.ParseDuration strings ("30s") or bare numbers of seconds.

# Settings

Settings is the typed deployment view. Load reads a file, then applies
EVENTLOG_* environment overrides:

	s, err := config.Load(os.Getenv("EVENTLOG_CONFIG"))
	if err != nil {
	    log.Fatal(err)
	}
	s.Check(slog.Default()) // logs base_uri, origin, file, models_uri_format if unset

A minimal file:

	base_uri: //events.example.org/event.gif
	origin: enwiki
	models_uri_format: https://meta.example.org/w/index.php?title=Schema:%s&action=raw
	lock_ttl: 30s
	store: redis
	redis:
	  addr: localhost:6379
*/
package config
