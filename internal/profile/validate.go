package profile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProfile is returned when a profile fails validation.
var ErrInvalidProfile = errors.New("invalid UE profile")

// Validate checks the fields a stored profile must carry.
func Validate(p *UeProfile) error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrInvalidProfile)
	}

	var problems []string
	if err := ValidateSUPI(p.Supi); err != nil {
		problems = append(problems, err.Error())
	}
	if p.PlmnID.Mcc == "" {
		problems = append(problems, "plmnid.mcc is required")
	}
	if p.PlmnID.Mnc == "" {
		problems = append(problems, "plmnid.mnc is required")
	}
	switch p.OpType {
	case "", OpTypeOP, OpTypeOPC:
	default:
		problems = append(problems, fmt.Sprintf("opType must be %s or %s", OpTypeOP, OpTypeOPC))
	}
	if p.ProtectionScheme < SchemeNull || p.ProtectionScheme > SchemeProfileB {
		problems = append(problems, fmt.Sprintf("unsupported protectionScheme %d", p.ProtectionScheme))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateSUPI checks that supi has the "imsi-<digits>" or "nai-<value>"
// form.
func ValidateSUPI(supi string) error {
	prefix, value, ok := strings.Cut(supi, "-")
	if !ok || value == "" {
		return fmt.Errorf("supi %q must look like imsi-<digits>", supi)
	}
	switch prefix {
	case "imsi":
		for _, r := range value {
			if r < '0' || r > '9' {
				return fmt.Errorf("supi %q has non-digit characters", supi)
			}
		}
		if len(value) < 6 || len(value) > 15 {
			return fmt.Errorf("supi %q must carry 6 to 15 digits", supi)
		}
	case "nai":
	default:
		return fmt.Errorf("supi %q has unsupported prefix %q", supi, prefix)
	}
	return nil
}

// ValidateGeneratorSpec checks a generation template.
func ValidateGeneratorSpec(spec *GeneratorSpec, maxUEs int) error {
	if spec == nil {
		return fmt.Errorf("%w: nil generator spec", ErrInvalidProfile)
	}
	if spec.NumUEs < 1 {
		return fmt.Errorf("%w: num_ues must be at least 1", ErrInvalidProfile)
	}
	if maxUEs > 0 && spec.NumUEs > maxUEs {
		return fmt.Errorf("%w: num_ues must not exceed %d", ErrInvalidProfile, maxUEs)
	}
	if spec.PlmnID.Mcc == "" || spec.PlmnID.Mnc == "" {
		return fmt.Errorf("%w: plmnid.mcc and plmnid.mnc are required", ErrInvalidProfile)
	}
	if len(spec.PlmnID.Mcc)+len(spec.PlmnID.Mnc) >= 15 {
		return fmt.Errorf("%w: plmnid leaves no room for an MSIN", ErrInvalidProfile)
	}
	return nil
}
