package yahb

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	g "github.com/hhkbp2/yahb/generator"
	"gopkg.in/yaml.v2"
)

type Properties map[string]string

func NewProperties() Properties {
	return make(Properties)
}

func (self Properties) Get(key string) string {
	v, _ := self[key]
	return v
}

func (self Properties) GetDefault(key string, defaultValue string) string {
	if v, ok := self[key]; ok {
		return v
	}
	return defaultValue
}

func (self Properties) Add(key, value string) {
	self[key] = value
}

func (self Properties) Merge(other map[string]string) {
	for k, v := range other {
		self[k] = v
	}
}

func (self Properties) GetInt64(key, defaultValue string) (int64, error) {
	propStr := self.GetDefault(key, defaultValue)
	v, err := strconv.ParseInt(propStr, 0, 64)
	if err != nil {
		return 0, g.NewErrorf("invalid %s=%s: %s", key, propStr, err)
	}
	return v, nil
}

func (self Properties) GetFloat64(key, defaultValue string) (float64, error) {
	propStr := self.GetDefault(key, defaultValue)
	v, err := strconv.ParseFloat(propStr, 64)
	if err != nil {
		return 0, g.NewErrorf("invalid %s=%s: %s", key, propStr, err)
	}
	return v, nil
}

func (self Properties) GetBool(key, defaultValue string) (bool, error) {
	propStr := self.GetDefault(key, defaultValue)
	v, err := strconv.ParseBool(propStr)
	if err != nil {
		return false, g.NewErrorf("invalid %s=%s: %s", key, propStr, err)
	}
	return v, nil
}

// GetSeconds reads a property expressed in (possibly fractional) seconds.
func (self Properties) GetSeconds(key, defaultValue string) (time.Duration, error) {
	v, err := self.GetFloat64(key, defaultValue)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Second)), nil
}

// LoadProperties reads a property file. Files ending in .yaml or .yml are
// parsed as a flat YAML mapping, everything else as "key=value" lines where
// '#' starts a comment.
func LoadProperties(fileName string) (Properties, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		return loadYAMLProperties(fileName)
	default:
		return loadTextProperties(fileName)
	}
}

func loadYAMLProperties(fileName string) (Properties, error) {
	content, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]interface{})
	if err = yaml.Unmarshal(content, &raw); err != nil {
		return nil, g.NewErrorf("invalid property file %s: %s", fileName, err)
	}
	ret := NewProperties()
	for k, v := range raw {
		ret.Add(k, fmt.Sprintf("%v", v))
	}
	return ret, nil
}

func loadTextProperties(fileName string) (Properties, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ret := NewProperties()
	scanner := bufio.NewScanner(f)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, g.NewErrorf("invalid line %d in property file %s: %s",
				lineNumber, fileName, line)
		}
		ret.Add(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func Output(format string, args ...interface{}) {
	fmt.Printf(format, args...)
	fmt.Println("")
}

func OutputProperties(p Properties) {
	Output("***************** properties *****************")
	if p != nil {
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			Output("\"%s\"=\"%s\"", k, p[k])
		}
	}
	Output("**********************************************")
}

func MillisecondToNanosecond(millis int64) int64 {
	return millis * 1000 * 1000
}

func MillisecondToSecond(millis int64) int64 {
	return millis / 1000
}

func NanosecondToMicrosecond(nanos int64) int64 {
	return nanos / 1000
}

func NanosecondToMillisecond(nanos int64) int64 {
	return nanos / 1000 / 1000
}

// NowMS returns the wall clock in milliseconds since epoch.
func NowMS() int64 {
	return NanosecondToMillisecond(time.Now().UnixNano())
}

// MillisToTime converts a clock timestamp into a bindable time value.
func MillisToTime(ms int64) time.Time {
	return time.Unix(0, MillisecondToNanosecond(ms)).UTC()
}
