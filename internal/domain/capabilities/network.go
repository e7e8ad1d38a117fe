package capabilities

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	maxHostnameLength = 255
	maxPort           = 65535
)

var hostnameLabel = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// Net grants network access. Each entry is either a scalar or a group
// ([]any, []string or []int). Within a group, strings are hostnames and
// integers in [0, 65535] are ports; the result holds one "host:port" per
// pair, or bare hosts when the group has no ports. A group without a valid
// hostname uses the empty hostname.
//
// Entries that are not valid hostnames or ports are dropped without error.
// Net with no entries grants all network access.
func Net(entries ...any) Descriptor {
	var params []string
	for _, entry := range entries {
		params = append(params, expandNetGroup(netGroup(entry))...)
	}
	return newDescriptor(KindNet, params)
}

func netGroup(entry any) []any {
	switch v := entry.(type) {
	case []any:
		return v
	case []string:
		group := make([]any, len(v))
		for i, s := range v {
			group[i] = s
		}
		return group
	case []int:
		group := make([]any, len(v))
		for i, n := range v {
			group[i] = n
		}
		return group
	default:
		return []any{entry}
	}
}

func expandNetGroup(group []any) []string {
	var hosts, ports []string
	for _, value := range group {
		if s, ok := value.(string); ok {
			if host, valid := normalizeHostname(s); valid {
				hosts = append(hosts, host)
			}
			continue
		}
		if port, ok := toPort(value); ok {
			ports = append(ports, strconv.Itoa(port))
		}
	}

	if len(hosts) == 0 {
		hosts = []string{""}
	}

	out := make([]string, 0, len(hosts)*max(len(ports), 1))
	for _, host := range hosts {
		if len(ports) == 0 {
			out = append(out, host)
			continue
		}
		for _, port := range ports {
			out = append(out, host+":"+port)
		}
	}
	return out
}

// ValidHostname reports whether s is an acceptable network hostname.
func ValidHostname(s string) bool {
	_, ok := normalizeHostname(s)
	return ok
}

// normalizeHostname strips a single trailing dot and validates each label.
func normalizeHostname(s string) (string, bool) {
	if len(s) > maxHostnameLength {
		return "", false
	}
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "", false
	}
	for _, label := range strings.Split(s, ".") {
		if !hostnameLabel.MatchString(label) {
			return "", false
		}
	}
	return s, true
}

func toPort(value any) (int, bool) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		if uint64(v) > maxPort {
			return 0, false
		}
		n = int64(v)
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > maxPort {
			return 0, false
		}
		n = int64(v)
	case float32:
		return floatPort(float64(v))
	case float64:
		return floatPort(v)
	default:
		return 0, false
	}
	if n < 0 || n > maxPort {
		return 0, false
	}
	return int(n), true
}

func floatPort(f float64) (int, bool) {
	if math.IsNaN(f) || f < 0 || f > maxPort || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// ToPort reports whether value is an integral port number in [0, 65535].
func ToPort(value any) (int, bool) {
	return toPort(value)
}

// ParseNetAddress strictly parses "host", "host:port" or ":port" into a Net
// group. Unlike Net, an invalid hostname or port is an error.
func ParseNetAddress(s string) ([]any, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		if !ValidHostname(s) {
			return nil, fmt.Errorf("invalid network address %q: not a hostname", s)
		}
		return []any{s}, nil
	}

	host, portText := s[:i], s[i+1:]
	port, err := strconv.Atoi(portText)
	if err != nil || port < 0 || port > maxPort {
		return nil, fmt.Errorf("invalid network address %q: bad port %q", s, portText)
	}
	if host == "" {
		return []any{port}, nil
	}
	if !ValidHostname(host) {
		return nil, fmt.Errorf("invalid network address %q: not a hostname", s)
	}
	return []any{host, port}, nil
}
