package config

import "time"

type Config struct {
	GracefulDuration time.Duration
	Metrics          Metrics
	Logs             Logs
	DeadLetterQueue  S3
	Report           S3
	Kafka            Kafka
	Valkey           Valkey
	Zoom             Zoom
	Publisher        Publisher
}

type Metrics struct {
	Port int
}

type Logs struct {
	Level   int
	Encoder EncoderType
}

type EncoderType string

const (
	EncoderTypeJson    EncoderType = "json"
	EncoderTypeConsole EncoderType = "console"
)

type S3 struct {
	Bucket       string
	KeyPrefix    string
	BaseEndpoint string
	Region       string
	UsePathStyle bool
	Creds        AWSCreds
}

type AWSCreds struct {
	AccessKeyID     string
	SecretAccessKey string
}

func (c AWSCreds) String() string {
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		return "creds set"
	}

	return "no creds"
}

type Kafka struct {
	Broker   KafkaBroker
	Consumer KafkaConsumer
}

type KafkaBroker struct {
	URLs    string
	Version string
	Creds   KafkaCreds
}

type SASLMechanism string

const (
	SASLMechanismNone        SASLMechanism = ""
	SASLMechanismPlain       SASLMechanism = "PLAIN"
	SASLMechanismScramSHA256 SASLMechanism = "SCRAM-SHA-256"
	SASLMechanismScramSHA512 SASLMechanism = "SCRAM-SHA-512"
)

type KafkaCreds struct {
	Mechanism SASLMechanism
	Username  string
	Password  string
	TLS       bool
}

func (c KafkaCreds) String() string {
	if c.Mechanism == SASLMechanismNone {
		return "no sasl"
	}

	return string(c.Mechanism) + " as " + c.Username
}

type KafkaConsumer struct {
	Topic string
	Group string
}

type Valkey struct {
	URL   string
	Creds ValkeyCreds
}

type ValkeyCreds struct {
	Username string
	Password string
}

func (c ValkeyCreds) String() string {
	if c.Password != "" {
		return "password set"
	}

	return "no password"
}

type Zoom struct {
	BaseURL string
	Timeout time.Duration

	// RateLimit is a number of requests per second. Zero disables client side limiting.
	RateLimit       float64
	Burst           int
	DurationPadding time.Duration

	Retry ZoomRetry
	Creds ZoomCreds
}

type ZoomRetry struct {
	MaxAttempt uint
	Delay      time.Duration
}

type ZoomCreds struct {
	TokenURL     string
	AccountID    string
	ClientID     string
	ClientSecret string
	// Token is a static bearer token, used when no client credentials are set.
	Token string
}

func (c ZoomCreds) String() string {
	switch {
	case c.ClientID != "" && c.ClientSecret != "":
		return "account credentials set"
	case c.Token != "":
		return "static token set"
	default:
		return "no creds"
	}
}

type Publisher struct {
	Concurrency int
	// Hosts is a static roster. When empty, the roster is read from valkey.
	Hosts []string
}
