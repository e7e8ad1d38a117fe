package services

import (
	"context"
	"log/slog"

	apperrors "github.com/reglet-dev/permrun/internal/application/errors"
	"github.com/reglet-dev/permrun/internal/application/ports"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
)

// Security levels accepted by CapabilityGatekeeper.
const (
	SecurityLevelStrict     = "strict"
	SecurityLevelStandard   = "standard"
	SecurityLevelPermissive = "permissive"
)

// CapabilityGatekeeper decides whether a normalized capability set may be
// handed to the launch runner. Only broad descriptors are reviewed; narrow
// ones are always allowed.
type CapabilityGatekeeper struct {
	store         ports.GrantStore
	prompter      ports.CapabilityPrompter
	securityLevel string
	logger        *slog.Logger
}

// NewCapabilityGatekeeper creates a new capability gatekeeper.
// An unknown security level behaves as standard.
func NewCapabilityGatekeeper(
	store ports.GrantStore,
	prompter ports.CapabilityPrompter,
	securityLevel string,
	logger *slog.Logger,
) *CapabilityGatekeeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapabilityGatekeeper{
		store:         store,
		prompter:      prompter,
		securityLevel: securityLevel,
		logger:        logger,
	}
}

// Review applies the security level to the broad descriptors of set.
// With trust set every descriptor is allowed after a warning.
func (g *CapabilityGatekeeper) Review(ctx context.Context, set capabilities.Set, trust bool) error {
	broad := set.Broad()
	if len(broad) == 0 {
		return nil
	}

	if trust {
		for _, d := range broad {
			g.logger.Warn("auto-granting broad capability (--trust enabled)", "capability", d.Flag())
		}
		return nil
	}

	switch g.securityLevel {
	case SecurityLevelStrict:
		for _, d := range broad {
			g.logger.Error("broad capability denied by security policy",
				"level", SecurityLevelStrict,
				"capability", d.Flag(),
				"risk", d.RiskDescription())
		}
		return apperrors.NewCapabilityError("broad capability denied by strict security policy", broad...)

	case SecurityLevelPermissive:
		for _, d := range broad {
			g.logger.Warn("auto-granting broad capability (permissive mode)", "capability", d.Flag())
		}
		return nil

	default:
		return g.reviewStandard(ctx, broad)
	}
}

func (g *CapabilityGatekeeper) reviewStandard(ctx context.Context, broad []capabilities.Descriptor) error {
	approved, err := g.store.Load()
	if err != nil {
		// A broken grants file only loses remembered approvals
		g.logger.Warn("failed to load approved capabilities", "path", g.store.ConfigPath(), "error", err)
		approved = nil
	}

	missing := findMissing(broad, approved)
	if len(missing) == 0 {
		return nil
	}

	if !g.prompter.IsInteractive() {
		return g.prompter.FormatNonInteractiveError(missing)
	}

	shouldSave := false
	for _, d := range missing {
		if err := ctx.Err(); err != nil {
			return err
		}

		granted, always, err := g.prompter.PromptForCapability(d)
		if err != nil {
			return err
		}
		if !granted {
			return apperrors.NewCapabilityError("capability denied by user", d)
		}
		g.logger.Info("broad capability granted", "capability", d.Flag(), "always", always)
		if always {
			approved = append(approved, d)
			shouldSave = true
		}
	}

	if shouldSave {
		if err := g.store.Save(approved); err != nil {
			g.logger.Warn("failed to save approved capabilities", "path", g.store.ConfigPath(), "error", err)
		} else {
			g.logger.Info("approvals saved", "path", g.store.ConfigPath())
		}
	}

	return nil
}

// findMissing returns descriptors in required that are not in approved.
func findMissing(required, approved []capabilities.Descriptor) []capabilities.Descriptor {
	var missing []capabilities.Descriptor
	for _, d := range required {
		found := false
		for _, a := range approved {
			if a.Equals(d) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, d)
		}
	}
	return missing
}
