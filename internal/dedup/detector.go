// Package dedup detects near-duplicate submissions: an exhaustive
// intra-batch pairwise scan plus a bounded-concurrency historical lookup
// against the duplicate index. Detection only ever produces proposals;
// it never mutates or deletes a unit, and linking is a separate human
// decision.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/openintake/triage/internal/store"
	"github.com/openintake/triage/internal/types"
)

// Detector finds duplicate pairs within a batch and against the store.
type Detector struct {
	index   store.DuplicateIndex
	linkage store.Linkage
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
	limiter *rate.Limiter
}

// New creates a Detector. A nil logger falls back to slog.Default().
func New(index store.DuplicateIndex, linkage store.Linkage, cfg Config, logger *slog.Logger) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dedup config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		index:   index,
		linkage: linkage,
		cfg:     cfg,
		log:     logger,
		now:     time.Now,
		limiter: rate.NewLimiter(rate.Limit(cfg.LookupRatePerSecond), 1),
	}, nil
}

// Detect runs both passes over the batch and returns every proposal plus
// the number of exact matches. The intra-batch pass is deliberately
// O(n²) over unordered pairs; batches are bounded and the exhaustive scan
// keeps behavior trivially order-independent. Historical lookup failures
// degrade to zero candidates for that unit and never abort the batch.
func (d *Detector) Detect(ctx context.Context, units []*types.InformationUnit, tenantID string) ([]*types.DuplicateDetection, int, error) {
	detections := d.intraBatch(units)
	seen := make(map[string]bool, len(detections))
	for _, det := range detections {
		seen[pairKey(det.PrimaryUnitID, det.DuplicateUnitID)] = true
	}

	historical, err := d.historical(ctx, units, tenantID)
	if err != nil {
		return nil, 0, err
	}
	for _, det := range historical {
		key := pairKey(det.PrimaryUnitID, det.DuplicateUnitID)
		if seen[key] {
			continue
		}
		seen[key] = true
		detections = append(detections, det)
	}

	exact := 0
	for _, det := range detections {
		if det.Method == types.MethodExact {
			exact++
		}
	}
	return detections, exact, nil
}

// intraBatch scans every unordered pair (i<j) in the batch.
func (d *Detector) intraBatch(units []*types.InformationUnit) []*types.DuplicateDetection {
	var detections []*types.DuplicateDetection
	for i := 0; i < len(units); i++ {
		for j := i + 1; j < len(units); j++ {
			if det := d.comparePair(units[i], units[j]); det != nil {
				detections = append(detections, det)
			}
		}
	}
	return detections
}

// comparePair evaluates one unordered pair. Equal hashes are an exact
// match with no time bound. Differing hashes need a similarity ratio
// above the threshold AND a received-time gap inside the fuzzy window.
func (d *Detector) comparePair(a, b *types.InformationUnit) *types.DuplicateDetection {
	primary, duplicate := orderPair(a, b)

	if a.ContentHash == b.ContentHash {
		return &types.DuplicateDetection{
			ID:              uuid.New().String(),
			PrimaryUnitID:   primary.ID,
			DuplicateUnitID: duplicate.ID,
			Method:          types.MethodExact,
			Similarity:      1.0,
			MatchCriteria: map[string]any{
				"content_hash_equal": true,
				"sender_match":       senderMatch(a, b),
			},
			TimeWindow: types.WindowUnlimited,
			DetectedAt: d.now().UTC(),
			Status:     types.LinkageProposed,
		}
	}

	gap := a.ReceivedAt.Sub(b.ReceivedAt)
	if gap < 0 {
		gap = -gap
	}
	if gap > d.cfg.FuzzyWindow {
		return nil
	}
	ratio := similarityRatio(a.Content, b.Content)
	if ratio <= d.cfg.FuzzyThreshold {
		return nil
	}
	return &types.DuplicateDetection{
		ID:              uuid.New().String(),
		PrimaryUnitID:   primary.ID,
		DuplicateUnitID: duplicate.ID,
		Method:          types.MethodFuzzy,
		Similarity:      ratio,
		MatchCriteria: map[string]any{
			"similarity_ratio": ratio,
			"elapsed_hours":    gap.Hours(),
			"sender_match":     senderMatch(a, b),
		},
		TimeWindow: types.Window7Days,
		DetectedAt: d.now().UTC(),
		Status:     types.LinkageProposed,
	}
}

// historical queries the duplicate index once per unit with bounded
// concurrency and translates each candidate into a detection.
func (d *Detector) historical(ctx context.Context, units []*types.InformationUnit, tenantID string) ([]*types.DuplicateDetection, error) {
	inBatch := make(map[string]bool, len(units))
	for _, u := range units {
		inBatch[u.ID] = true
	}

	var mu sync.Mutex
	var detections []*types.DuplicateDetection

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.MaxConcurrentLookups)
	for _, unit := range units {
		unit := unit
		g.Go(func() error {
			candidates := d.lookup(gctx, unit, tenantID)
			var local []*types.DuplicateDetection
			for _, c := range candidates {
				if c.ID == unit.ID || inBatch[c.ID] {
					// Batch members were already compared exhaustively.
					continue
				}
				local = append(local, d.translate(unit, c))
			}
			if len(local) > 0 {
				mu.Lock()
				detections = append(detections, local...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Lookup completion order is nondeterministic; restore a stable order
	// so identical inputs always yield identical result lists.
	sort.Slice(detections, func(i, j int) bool {
		if detections[i].PrimaryUnitID != detections[j].PrimaryUnitID {
			return detections[i].PrimaryUnitID < detections[j].PrimaryUnitID
		}
		return detections[i].DuplicateUnitID < detections[j].DuplicateUnitID
	})
	return detections, nil
}

// lookup performs one rate-limited, timeout-bounded index query. Any
// failure (including timeout) degrades to zero candidates.
func (d *Detector) lookup(ctx context.Context, unit *types.InformationUnit, tenantID string) []*types.DuplicateCandidate {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil
	}
	lctx, cancel := context.WithTimeout(ctx, d.cfg.LookupTimeout)
	defer cancel()

	candidates, err := d.index.FindDuplicateCandidates(lctx, tenantID, unit.ContentHash,
		unit.SenderEmail(), unit.ReceivedAt, d.cfg.MaxCandidates)
	if err != nil {
		d.log.Warn("historical duplicate lookup failed, continuing without",
			"unit", unit.ID, "error", err)
		return nil
	}
	return candidates
}

// translate converts one historical candidate into a detection: an exact
// match when the hashes agree, otherwise a metadata match at the fixed
// 0.85 similarity. The window label records whether the candidate was
// within the recent window.
func (d *Detector) translate(unit *types.InformationUnit, c *types.DuplicateCandidate) *types.DuplicateDetection {
	method := types.MethodMetadata
	similarity := 0.85
	if c.ContentHash == unit.ContentHash {
		method = types.MethodExact
		similarity = 1.0
	}
	window := types.Window7Days
	if time.Duration(c.TimeDiffSeconds)*time.Second <= d.cfg.RecentWindow {
		window = types.Window5Minutes
	}
	return &types.DuplicateDetection{
		ID:              uuid.New().String(),
		PrimaryUnitID:   c.ID,
		DuplicateUnitID: unit.ID,
		Method:          method,
		Similarity:      similarity,
		MatchCriteria: map[string]any{
			"reason":             c.Reason,
			"time_diff_seconds":  c.TimeDiffSeconds,
			"content_hash_equal": c.ContentHash == unit.ContentHash,
		},
		TimeWindow: window,
		DetectedAt: d.now().UTC(),
		Status:     types.LinkageProposed,
	}
}

// ProposeLinkage records the detection as a linkage proposal. Transport
// errors are logged and reported as failure, never raised, so the caller
// can continue its batch.
func (d *Detector) ProposeLinkage(ctx context.Context, tenantID string, det *types.DuplicateDetection) bool {
	ok, err := d.linkage.ProposeLinkage(ctx, tenantID, det.PrimaryUnitID, det.DuplicateUnitID,
		string(det.Method), det.DetectedAt)
	if err != nil {
		d.log.Warn("linkage proposal failed",
			"primary", det.PrimaryUnitID, "duplicate", det.DuplicateUnitID, "error", err)
		return false
	}
	return ok
}

// similarityRatio computes the normalized alignment-based similarity of
// two texts in [0,1], character-wise.
func similarityRatio(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// orderPair picks a stable primary/duplicate ordering: the earlier
// received unit is primary, ties broken by ID. This keeps detections
// identical whichever order the batch presents the pair in.
func orderPair(a, b *types.InformationUnit) (primary, duplicate *types.InformationUnit) {
	if a.ReceivedAt.Before(b.ReceivedAt) {
		return a, b
	}
	if b.ReceivedAt.Before(a.ReceivedAt) {
		return b, a
	}
	if a.ID <= b.ID {
		return a, b
	}
	return b, a
}

func senderMatch(a, b *types.InformationUnit) bool {
	sa, sb := a.SenderEmail(), b.SenderEmail()
	return sa != "" && sa == sb
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
