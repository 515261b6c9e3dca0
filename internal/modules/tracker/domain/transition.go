package domain

type action int

const (
	actionIgnore action = iota
	actionStart
	actionAdvance
	actionFinish
)

const anyIndex = -1

// rule is the guard a label must pass before its action runs.
type rule struct {
	action    action
	running   bool
	fromIndex int
}

// transitions is the complete label table. Everything a rule does not admit
// is ignored, which absorbs duplicate and out-of-order classifier output.
var transitions = map[Label]rule{
	LabelUnclassified: {action: actionIgnore},
	LabelDay1:         {action: actionStart, running: false, fromIndex: anyIndex},
	LabelDay2:         {action: actionAdvance, running: true, fromIndex: 0},
	LabelDay3:         {action: actionAdvance, running: true, fromIndex: 1},
	LabelDefeat:       {action: actionFinish, running: true, fromIndex: anyIndex},
	LabelVictory:      {action: actionFinish, running: true, fromIndex: anyIndex},
}

// Labels lists every value of the closed label set.
var Labels = []Label{LabelDay1, LabelDay2, LabelDay3, LabelDefeat, LabelVictory, LabelUnclassified}

func (r rule) admits(running bool, index int) bool {
	if r.action == actionIgnore || r.running != running {
		return false
	}
	return r.fromIndex == anyIndex || r.fromIndex == index
}

func lookup(label Label) rule {
	r, ok := transitions[label]
	if !ok {
		return rule{action: actionIgnore}
	}
	return r
}
