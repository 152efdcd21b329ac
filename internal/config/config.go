// Package config loads the immutable runtime configuration from SOYLE_*
// environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/soyle-app/soyle/internal/gesture"
)

// CommandPort is the default stream port. Commands and video share one
// duplex connection.
const CommandPort = 8485

// Capture configures the camera and outbound frames.
type Capture struct {
	CameraID      int     `validate:"gte=0"`
	Width         int     `validate:"gt=0"`
	Height        int     `validate:"gt=0"`
	FPS           int     `validate:"gt=0,lte=120"`
	JPEGQuality   int     `validate:"gte=1,lte=100"`
	Mirror        bool    // flip horizontally like a mirror
	ProcessEveryN int     `validate:"gte=1"`
	MotionThresh  float64 `validate:"gte=0,lte=1"`
}

// Detector configures the landmark provider.
type Detector struct {
	MaxHands      int     `validate:"gte=1,lte=4"`
	MinConfidence float64 `validate:"gte=0,lte=1"`
}

// Stream configures the sensor/feedback connection.
type Stream struct {
	ListenAddr   string        `validate:"required,hostname_port"`
	ServerAddr   string        `validate:"required,hostname_port"`
	FrameTimeout time.Duration `validate:"gte=0"` // client: longest wait for the next video frame, zero waits forever
	// CommandIdleTimeout ends a server session after this long without a
	// command. Commands only arrive on label changes, so zero (off) is the
	// default and the write deadline catches a dead peer.
	CommandIdleTimeout time.Duration `validate:"gte=0"`
	WriteTimeout       time.Duration `validate:"gte=0"`
	DialTimeout        time.Duration `validate:"gt=0"`
	MaxFrameSize       int           `validate:"gt=0"`
}

// Speech configures the phrase table and the audio sink.
type Speech struct {
	Lang       string `validate:"oneof=ru en"`
	Profile    string `validate:"oneof=basic descriptive"`
	Voice      string
	RateWPM    int `validate:"gte=0,lte=600"`
	Command    string
	PhraseFile string
	ClipDir    string
}

// MQTT configures the optional event publisher.
type MQTT struct {
	Broker   string `validate:"omitempty,url"`
	Topic    string `validate:"required_with=Broker"`
	ClientID string
	Username string
	Password string
}

// Config is the full runtime configuration.
type Config struct {
	Dwell      time.Duration `validate:"gt=0"`
	Cooldown   time.Duration `validate:"gt=0"`
	Classifier gesture.Config
	Capture    Capture
	Detector   Detector
	Stream     Stream
	Speech     Speech
	MQTT       MQTT

	HTTPAddr string `validate:"omitempty,hostname_port"`
	WebDir   string // static files for the debug server
	DataDir  string `validate:"required"`
	DBPath   string
	LogDir   string
	LogLevel string `validate:"oneof=panic fatal error warn warning info debug trace"`
	Tray     bool
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := ".soyle"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".soyle")
	}

	return Config{
		Dwell:      450 * time.Millisecond,
		Cooldown:   1200 * time.Millisecond,
		Classifier: gesture.DefaultConfig(),
		Capture: Capture{
			Width:         640,
			Height:        480,
			FPS:           15,
			JPEGQuality:   80,
			Mirror:        true,
			ProcessEveryN: 1,
			MotionThresh:  0.02,
		},
		Detector: Detector{
			MaxHands:      2,
			MinConfidence: 0.5,
		},
		Stream: Stream{
			ListenAddr:         fmt.Sprintf(":%d", CommandPort),
			ServerAddr:         fmt.Sprintf("127.0.0.1:%d", CommandPort),
			FrameTimeout:       0,
			CommandIdleTimeout: 0,
			WriteTimeout:       5 * time.Second,
			DialTimeout:        5 * time.Second,
			MaxFrameSize:       16 << 20,
		},
		Speech: Speech{
			Lang:    "ru",
			Profile: "basic",
			RateWPM: 170,
		},
		MQTT: MQTT{
			Topic:    "soyle/gestures",
			ClientID: "soyle",
		},
		DataDir:  dataDir,
		LogLevel: "info",
	}
}

// Load reads .env files (missing files are ignored), applies SOYLE_*
// variables over Default and validates the result.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()
	if err := cfg.apply(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv applies variables from lookup over Default and validates. It never
// touches the process environment.
func LoadEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if err := cfg.apply(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DatabasePath returns DBPath, defaulting to soyle.db in DataDir.
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "soyle.db")
}

func (c *Config) apply(lookup func(string) (string, bool)) error {
	e := &env{lookup: lookup}

	e.millis("SOYLE_DWELL_MS", &c.Dwell)
	e.seconds("SOYLE_COOLDOWN_S", &c.Cooldown)

	e.float("SOYLE_EXT_ANGLE_DEG", &c.Classifier.ExtAngleDeg)
	e.float("SOYLE_CURL_ANGLE_DEG", &c.Classifier.CurlAngleDeg)
	e.float("SOYLE_OK_PINCH_THRESH", &c.Classifier.OKPinchThresh)
	e.float("SOYLE_L_ANGLE_MIN", &c.Classifier.LAngleMin)
	e.float("SOYLE_L_ANGLE_MAX", &c.Classifier.LAngleMax)
	e.float("SOYLE_L_INDEX_LEN_MIN", &c.Classifier.LIndexLenMin)
	e.float("SOYLE_L_THUMB_LEN_MIN", &c.Classifier.LThumbLenMin)

	e.integer("SOYLE_CAMERA_ID", &c.Capture.CameraID)
	e.integer("SOYLE_CAPTURE_WIDTH", &c.Capture.Width)
	e.integer("SOYLE_CAPTURE_HEIGHT", &c.Capture.Height)
	e.integer("SOYLE_CAPTURE_FPS", &c.Capture.FPS)
	e.integer("SOYLE_JPEG_QUALITY", &c.Capture.JPEGQuality)
	e.boolean("SOYLE_MIRROR", &c.Capture.Mirror)
	e.integer("SOYLE_PROCESS_EVERY_N_FRAMES", &c.Capture.ProcessEveryN)
	e.float("SOYLE_MOTION_THRESHOLD", &c.Capture.MotionThresh)

	e.integer("SOYLE_MAX_HANDS", &c.Detector.MaxHands)
	e.float("SOYLE_MIN_DETECTION_CONFIDENCE", &c.Detector.MinConfidence)

	e.str("SOYLE_LISTEN_ADDR", &c.Stream.ListenAddr)
	e.str("SOYLE_SERVER_ADDR", &c.Stream.ServerAddr)
	e.millis("SOYLE_FRAME_TIMEOUT_MS", &c.Stream.FrameTimeout)
	e.millis("SOYLE_COMMAND_IDLE_TIMEOUT_MS", &c.Stream.CommandIdleTimeout)
	e.millis("SOYLE_WRITE_TIMEOUT_MS", &c.Stream.WriteTimeout)
	e.millis("SOYLE_DIAL_TIMEOUT_MS", &c.Stream.DialTimeout)
	e.integer("SOYLE_MAX_FRAME_BYTES", &c.Stream.MaxFrameSize)

	e.str("SOYLE_LANG", &c.Speech.Lang)
	e.str("SOYLE_PHRASE_PROFILE", &c.Speech.Profile)
	e.str("SOYLE_TTS_VOICE", &c.Speech.Voice)
	e.integer("SOYLE_TTS_RATE_WPM", &c.Speech.RateWPM)
	e.str("SOYLE_TTS_COMMAND", &c.Speech.Command)
	e.str("SOYLE_PHRASE_FILE", &c.Speech.PhraseFile)
	e.str("SOYLE_AUDIO_DIR", &c.Speech.ClipDir)

	e.str("SOYLE_MQTT_BROKER", &c.MQTT.Broker)
	e.str("SOYLE_MQTT_TOPIC", &c.MQTT.Topic)
	e.str("SOYLE_MQTT_CLIENT_ID", &c.MQTT.ClientID)
	e.str("SOYLE_MQTT_USERNAME", &c.MQTT.Username)
	e.str("SOYLE_MQTT_PASSWORD", &c.MQTT.Password)

	e.str("SOYLE_HTTP_ADDR", &c.HTTPAddr)
	e.str("SOYLE_WEB_DIR", &c.WebDir)
	e.str("SOYLE_DATA_DIR", &c.DataDir)
	e.str("SOYLE_DB_PATH", &c.DBPath)
	e.str("SOYLE_LOG_DIR", &c.LogDir)
	e.str("SOYLE_LOG_LEVEL", &c.LogLevel)
	e.boolean("SOYLE_TRAY", &c.Tray)

	return errors.Join(e.errs...)
}

// env collects parse errors so every bad variable is reported at once.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *env) fail(key, val string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, val, err))
}

func (e *env) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *env) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *env) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *env) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *env) millis(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = time.Duration(n * float64(time.Millisecond))
	}
}

func (e *env) seconds(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = time.Duration(n * float64(time.Second))
	}
}
