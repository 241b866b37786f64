package app

import "github.com/dkeye/Presence/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(room *core.Room, conn *core.Connection) BackpressureAction
}

// SimplePolicy drops the slow connection; its transport will then report a disconnect.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room *core.Room, conn *core.Connection) BackpressureAction {
	return KickMember
}

// LenientPolicy keeps slow connections and drops the message.
type LenientPolicy struct{}

func (LenientPolicy) OnBackPressure(room *core.Room, conn *core.Connection) BackpressureAction {
	return DropFrame
}
