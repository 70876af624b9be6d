package server

import "quickdraw/internal/db"

// drawerPick is the outcome of one rotation step. DrawnUserIDs already
// includes the chosen drawer; CycleReset reports that everyone had drawn
// and the cycle started over.
type drawerPick struct {
	UserID       uint
	PointerIndex int
	DrawnUserIDs []uint
	CycleReset   bool
}

// pickNextDrawer selects the next drawer from the active participants,
// which must be sorted by user id. Solo mode is a flat pointer rotation;
// team mode alternates blue and orange. Within a cycle every participant
// draws at most once.
func pickNextDrawer(mode string, participants []db.Participant, pointerIndex int, drawn []uint) (drawerPick, bool) {
	order := rotationOrder(mode, participants)
	if len(order) == 0 {
		return drawerPick{}, false
	}
	start := pointerIndex % len(order)
	if start < 0 {
		start = 0
	}
	for offset := 0; offset < len(order); offset++ {
		idx := (start + offset) % len(order)
		candidate := order[idx]
		if containsUint(drawn, candidate) {
			continue
		}
		return drawerPick{
			UserID:       candidate,
			PointerIndex: idx + 1,
			DrawnUserIDs: append(append([]uint{}, drawn...), candidate),
		}, true
	}
	// Everyone drew this cycle; reset and pick at the pointer.
	chosen := order[start]
	return drawerPick{
		UserID:       chosen,
		PointerIndex: start + 1,
		DrawnUserIDs: []uint{chosen},
		CycleReset:   true,
	}, true
}

func rotationOrder(mode string, participants []db.Participant) []uint {
	if mode != modeTeam {
		return flatOrder(participants)
	}
	var blue, orange []uint
	for _, p := range participants {
		if p.Team == nil {
			continue
		}
		switch *p.Team {
		case teamBlue:
			blue = append(blue, p.UserID)
		case teamOrange:
			orange = append(orange, p.UserID)
		}
	}
	if len(blue) == 0 || len(orange) == 0 {
		return flatOrder(participants)
	}
	merged := make([]uint, 0, len(blue)+len(orange))
	for i := 0; i < len(blue) || i < len(orange); i++ {
		if i < len(blue) {
			merged = append(merged, blue[i])
		}
		if i < len(orange) {
			merged = append(merged, orange[i])
		}
	}
	return merged
}

func flatOrder(participants []db.Participant) []uint {
	order := make([]uint, 0, len(participants))
	for _, p := range participants {
		order = append(order, p.UserID)
	}
	return order
}
