package user_agent

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	Unknown       = "unknown"
)

type UserAgent struct {
	UserAgent string
	Browser   string
	Device    string
	Mobile    bool
	Tablet    bool
	Desktop   bool
}

//go:embed database/classes.yml
var databaseFiles embed.FS

// DeviceEntry maps a pattern to a device class.
type DeviceEntry struct {
	Regex  string `yaml:"regex"`
	Device string `yaml:"device"`
}

// BrowserEntry maps a pattern to a browser family.
type BrowserEntry struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type ruleFile struct {
	Devices  []DeviceEntry  `yaml:"devices"`
	Browsers []BrowserEntry `yaml:"browsers"`
}

type compiledRule struct {
	regex *pcre.Regexp
	value string
}

// Classifier evaluates ordered rules; the first match wins.
type Classifier struct {
	devices  []compiledRule
	browsers []compiledRule
}

// NewClassifier compiles a YAML rule table.
func NewClassifier(data []byte) (*Classifier, error) {
	var rules ruleFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("error parsing user agent rules: %w", err)
	}

	c := &Classifier{}
	for _, entry := range rules.Devices {
		regex, err := pcre.Compile(entry.Regex)
		if err != nil {
			return nil, fmt.Errorf("error compiling device rule %q: %w", entry.Regex, err)
		}
		c.devices = append(c.devices, compiledRule{regex: regex, value: entry.Device})
	}
	for _, entry := range rules.Browsers {
		regex, err := pcre.Compile(entry.Regex)
		if err != nil {
			return nil, fmt.Errorf("error compiling browser rule %q: %w", entry.Regex, err)
		}
		c.browsers = append(c.browsers, compiledRule{regex: regex, value: entry.Name})
	}
	return c, nil
}

// Parse classifies a raw user agent. An empty agent is unknown on both axes.
func (c *Classifier) Parse(userAgent string) UserAgent {
	if strings.TrimSpace(userAgent) == "" {
		return UserAgent{UserAgent: userAgent, Browser: Unknown, Device: Unknown}
	}

	device := DeviceDesktop
	for _, rule := range c.devices {
		if rule.regex.MatchString(userAgent) {
			device = rule.value
			break
		}
	}

	browser := Unknown
	for _, rule := range c.browsers {
		if rule.regex.MatchString(userAgent) {
			browser = rule.value
			break
		}
	}

	return UserAgent{
		UserAgent: userAgent,
		Browser:   browser,
		Device:    device,
		Mobile:    device == DeviceMobile,
		Tablet:    device == DeviceTablet,
		Desktop:   device == DeviceDesktop,
	}
}

var (
	defaultClassifier *Classifier
	defaultErr        error
	once              sync.Once
)

func getClassifier() (*Classifier, error) {
	once.Do(func() {
		data, err := databaseFiles.ReadFile("database/classes.yml")
		if err != nil {
			defaultErr = err
			return
		}
		defaultClassifier, defaultErr = NewClassifier(data)
	})
	return defaultClassifier, defaultErr
}

// ParseUserAgent classifies userAgent with the embedded rule table.
func ParseUserAgent(userAgent string) UserAgent {
	classifier, err := getClassifier()
	if err != nil {
		return UserAgent{UserAgent: userAgent, Browser: Unknown, Device: Unknown}
	}
	return classifier.Parse(userAgent)
}
