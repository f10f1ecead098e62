package resolver

import (
	"context"
	"errors"
	"maps"
	"slices"

	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/core/ports"
	"go.trai.ch/zerr"
)

// PinState is the verdict for one lockfile entry.
type PinState string

const (
	// PinValid means the fetched manifest matches the pinned digest.
	PinValid PinState = "valid"
	// PinStale means the manifest changed since the pin was written.
	PinStale PinState = "stale"
	// PinMissing means the pinned source has no manifest.
	PinMissing PinState = "missing"
)

// PinStatus is the verdict for one pin.
type PinStatus struct {
	ID         string
	Coordinate domain.GitCoordinate
	State      PinState
	Reason     string
}

// Report is the result of ValidatePins.
type Report struct {
	Environment string
	Schema      domain.LockfileSchema
	// Missing is set when the root has no Move.lock or none for the environment.
	Missing bool
	// Stale is set when any pin, or the root dependency list, no longer matches.
	Stale bool
	Reason string
	Pins   []PinStatus
}

// ValidatePins checks the root's Move.lock against the current manifests
// without building a graph. V4 pins are compared by manifest digest, one
// manifest fetch per pin. Legacy and V3 lockfiles are compared by the root's
// dependency names.
func (r *Resolver) ValidatePins(ctx context.Context, root domain.GitCoordinate, opts Options) (*Report, error) {
	ctx, span := r.tracer.Start(ctx, "verify", ports.WithAttribute("env", opts.Environment))
	defer span.End()

	rootPkg, err := r.loadRoot(ctx, root, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	report := &Report{Environment: opts.Environment}
	text, ok := rootPkg.Files[domain.LockfileName]
	if !ok {
		report.Missing = true
		return report, nil
	}
	lock, err := r.lockfiles.Parse(text)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.Schema = lock.Schema()

	switch l := lock.(type) {
	case *domain.V4Lockfile:
		err = r.validateV4(ctx, rootPkg, l, report)
	case *domain.V3Lockfile:
		report.markStale(checkRootNames(rootPkg, l.RootDependencyNames()))
	case *domain.LegacyLockfile:
		report.markStale(checkRootNames(rootPkg, l.RootDependencies))
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("stale", report.Stale)
	return report, nil
}

func (rep *Report) markStale(err error) {
	if err == nil {
		return
	}
	rep.Stale = true
	if rep.Reason == "" {
		rep.Reason = err.Error()
	}
}

func (r *Resolver) validateV4(ctx context.Context, root *domain.Package, lock *domain.V4Lockfile, report *Report) error {
	pins, ok := lock.Pins(report.Environment)
	if !ok {
		report.Missing = true
		return nil
	}

	for _, id := range sortPinIDs(slices.Collect(maps.Keys(pins))) {
		pin := pins[id]
		status := PinStatus{ID: id, State: PinValid}

		if pin.Source.Root {
			status.Coordinate = root.Coordinate
			if !domain.PinMatches(pin, root.ManifestText, root.Declared) {
				status.State = PinStale
			}
			report.add(status)
			continue
		}

		status.Coordinate = pinCoordinate(root, pin.Source)
		text, found, err := r.fetcher.FetchFile(ctx, status.Coordinate, domain.ManifestFileName)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			status.State = PinMissing
			status.Reason = err.Error()
		case !found:
			status.State = PinMissing
			status.Reason = domain.ErrManifestNotFound.Error()
		default:
			manifest, err := r.manifests.Parse(text)
			if err != nil {
				return zerr.With(err, "pin", id)
			}
			if !domain.PinMatches(pin, text, manifest.DependenciesFor(false)) {
				status.State = PinStale
			}
		}
		report.add(status)
	}
	return nil
}

func (rep *Report) add(s PinStatus) {
	rep.Pins = append(rep.Pins, s)
	switch s.State {
	case PinStale:
		rep.markStale(errors.New("manifest digest of " + s.ID + " changed"))
	case PinMissing:
		rep.markStale(errors.New("locked package " + s.ID + " is unavailable"))
	}
}
