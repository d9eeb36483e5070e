package telegram

import "sync"

type flow uint8

const (
	flowDiagram flow = iota
	flowCode
)

type flightKey struct {
	chatID int64
	flow   flow
}

// flights admits one in-flight call per chat and flow. The diagram and code
// flows of the same chat may overlap.
type flights struct {
	m sync.Map // flightKey -> struct{}
}

func (f *flights) acquire(chatID int64, fl flow) bool {
	_, busy := f.m.LoadOrStore(flightKey{chatID, fl}, struct{}{})
	return !busy
}

func (f *flights) release(chatID int64, fl flow) {
	f.m.Delete(flightKey{chatID, fl})
}
