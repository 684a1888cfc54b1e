package services

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ParseEnvFile reads a KEY=value file, tolerating comments, blank lines
// and single or double quoted values.
func ParseEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer f.Close()

	out := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		out[strings.TrimSpace(key)] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return out, nil
}

// EnabledServices extracts service names from enabled flags. Both
// SERVICE_NEXTCLOUD_ENABLED=true and NEXTCLOUD_ENABLED=true yield
// "nextcloud".
func EnabledServices(env map[string]string) []string {
	var out []string
	for key, value := range env {
		if !strings.HasSuffix(key, "_ENABLED") {
			continue
		}
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			name := strings.TrimSuffix(key, "_ENABLED")
			name = strings.TrimPrefix(name, "SERVICE_")
			out = append(out, strings.ToLower(name))
		}
	}
	sort.Strings(out)
	return out
}

// PlanFromEnv assembles a provisioning plan from the profile config.
func PlanFromEnv(cfg map[string]string) (Plan, error) {
	plan := Plan{
		Username: cfg["UNIVERSAL_USERNAME"],
		Domain:   cfg["DOMAIN"],
		Mode:     PasswordMode(cfg["PASSWORD_APPROACH"]),
		Password: cfg["UNIVERSAL_PASSWORD"],
	}
	if plan.Username == "" {
		return Plan{}, fmt.Errorf("UNIVERSAL_USERNAME is not set")
	}
	switch plan.Mode {
	case "":
		plan.Mode = PasswordGenerated
	case PasswordUniversal, PasswordGenerated:
	default:
		return Plan{}, fmt.Errorf("unknown PASSWORD_APPROACH %q", plan.Mode)
	}
	if plan.Mode == PasswordUniversal && plan.Password == "" {
		return Plan{}, fmt.Errorf("UNIVERSAL_PASSWORD is required for the universal approach")
	}
	return plan, nil
}
