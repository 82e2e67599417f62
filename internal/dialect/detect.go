package dialect

import (
	"context"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/oracle"
)

// Detect asks each profile's fingerprint in order and returns the first one
// the target confirms. No match is fatal and reported as
// ErrKindDialectNotDetected.
func Detect(ctx context.Context, asker oracle.Asker, profiles []*Profile) (*Profile, error) {
	log := logger.FromContext(ctx)

	for _, p := range profiles {
		log.Debugf("testing %s fingerprint", p.Name)
		ok, err := asker.Ask(ctx, p.Fingerprint)
		if err != nil {
			return nil, err
		}
		if ok {
			log.Infof("database type detected: %s", p.Name)
			return p, nil
		}
	}
	return nil, errs.New(errs.ErrKindDialectNotDetected, "no dialect fingerprint matched the target")
}
