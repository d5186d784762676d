package pattern

// Geometric acceptance bands for formation detection. Each band is a
// hard gate: a candidate window violating any bound is rejected
// outright rather than scored. The bands are deliberately wide enough
// to tolerate noisy daily bars while still excluding degenerate
// shapes, and narrow enough that the validator's historical rescan
// finds structurally comparable occurrences.
const (
	// CupTroughPositionMin and CupTroughPositionMax bound where the
	// window minimum may sit, as a fraction of the window length. A
	// trough outside this band means the bottom is at the edge of the
	// window, which is a V-shaped sell-off or an incomplete base, not
	// a rounded cup.
	CupTroughPositionMin = 0.30
	CupTroughPositionMax = 0.70

	// CupDepthMin and CupDepthMax bound the trough's drop relative to
	// the left peak. Shallower than 8% is indistinguishable from
	// sideways noise; deeper than 40% signals a broken stock whose
	// recovery statistics do not transfer.
	CupDepthMin = 0.08
	CupDepthMax = 0.40

	// HandleLowPositionMin requires the handle's low to stay in the
	// upper part of the cup's price range. A handle that retests the
	// cup bottom is a failed base, not a consolidation.
	HandleLowPositionMin = 0.35

	// HandleDepthMax caps the handle's pullback relative to the
	// handle high. A deeper pullback is a second leg down rather
	// than a handle.
	HandleDepthMax = 0.25

	// BottomFlatnessMax caps how far the bars in the middle third of
	// a rounded bottom may sit above the window minimum, relative to
	// the full price range. A flat, wide base distinguishes a rounded
	// bottom from a single-bar spike low.
	BottomFlatnessMax = 0.15

	// RecoveryMin requires the last close of a rounded bottom to have
	// retraced at least this fraction of the drop from peak to
	// trough. Without a recovery leg the base is still forming.
	RecoveryMin = 0.50
)

// Moving-average spans for the golden-cross detector. The 50/200
// pair is the conventional definition; both are in trading days.
const (
	FastSMAPeriod = 50
	SlowSMAPeriod = 200

	// CrossLookback bounds how many bars before the window end the
	// fast average may have crossed the slow one. An old cross is
	// stale information, not a fresh signal.
	CrossLookback = 10
)
