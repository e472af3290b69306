package buildcfg

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"campusbooker/internal/mailer"
	"campusbooker/pkg/resilience"
)

type ServerConfig struct {
	Port string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}
	return ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	host := cfg.GetString("database.host")
	port := cfg.GetInt("database.port")
	user := cfg.GetString("database.user")
	password := cfg.GetString("database.password")
	name := cfg.GetString("database.name")
	if host == "" || user == "" || name == "" {
		return "", nil, nil, fmt.Errorf("database config incomplete: host=%q user=%q name=%q", host, user, name)
	}
	if port == 0 {
		port = 5432
	}

	masterDSN := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		user, password, host, port, name,
	)

	maxOpen := cfg.GetInt("database.max_open_conns")
	if maxOpen == 0 {
		maxOpen = 10
	}
	maxIdle := cfg.GetInt("database.max_idle_conns")
	if maxIdle == 0 {
		maxIdle = 5
	}

	log.Info().Msgf("DB config built for %s:%d/%s", host, port, name)
	return masterDSN, nil, &dbpg.Options{
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
	}, nil
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Url == "" {
		return rc, fmt.Errorf("rabbit.url is not set")
	}
	if rc.Exchange == "" {
		rc.Exchange = "booking.confirmed"
	}
	if rc.Queue == "" {
		rc.Queue = "booking.confirmed.mail"
	}
	log.Info().Msgf("Rabbit config built (exchange=%s, queue=%s)", rc.Exchange, rc.Queue)
	return rc, nil
}

func BuildSMTPConfig(cfg *config.Config, log *zerolog.Logger) (mailer.SMTPConfig, error) {
	sc := mailer.SMTPConfig{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetInt("smtp.port"),
		From:     cfg.GetString("smtp.from"),
		Password: cfg.GetString("smtp.password"),
	}
	if sc.Host == "" || sc.From == "" {
		return sc, fmt.Errorf("smtp config incomplete: host=%q from=%q", sc.Host, sc.From)
	}
	if sc.Port == 0 {
		sc.Port = 587
	}
	return sc, nil
}

// CollaboratorBaseURL reads the base URL of another service, e.g.
// collaborators.booking or collaborators.user.
func CollaboratorBaseURL(cfg *config.Config, name string) (string, error) {
	base := cfg.GetString("collaborators." + name)
	if base == "" {
		return "", fmt.Errorf("collaborators.%s is not set", name)
	}
	return base, nil
}

// BuildResilienceConfig reads the shared resilience knobs and names the
// resulting config after the collaborator so breaker state logs are
// attributable. Zero values fall back to the package defaults.
func BuildResilienceConfig(cfg *config.Config, collaborator string) resilience.Config {
	return resilience.Config{
		Name:         collaborator,
		Attempts:     cfg.GetInt("resilience.attempts"),
		Delay:        time.Duration(cfg.GetInt("resilience.delay_ms")) * time.Millisecond,
		Backoff:      float64(cfg.GetInt("resilience.backoff")),
		FailureRatio: float64(cfg.GetInt("resilience.failure_percent")) / 100,
		MinRequests:  uint32(cfg.GetInt("resilience.min_requests")),
		Cooldown:     time.Duration(cfg.GetInt("resilience.cooldown_sec")) * time.Second,
	}
}
