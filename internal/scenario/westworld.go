package scenario

import (
	"fmt"
	"math/rand"

	"easy-ai/server/internal/agent"
	"easy-ai/server/internal/geom"
)

// Location is a place in the West World town.
type Location uint8

const (
	Nowhere Location = iota
	GoldMine
	Bank
	Saloon
	Home
)

func (l Location) String() string {
	switch l {
	case GoldMine:
		return "gold mine"
	case Bank:
		return "bank"
	case Saloon:
		return "saloon"
	case Home:
		return "home"
	default:
		return "nowhere"
	}
}

// Telegram is a message passed between the miner and the housekeeper.
type Telegram uint8

const (
	HiHoneyImHome Telegram = iota
	StewReady
)

// Resident is the data shared by both West World characters.
type Resident struct {
	Location Location
	// Partner receives telegrams sent by this resident.
	Partner *agent.Agent
	// Places maps locations to positions the resident walks to. Locations
	// without a position change instantly.
	Places map[Location]geom.Vec3
	Rand   *rand.Rand
}

func (r *Resident) intn(n int) int {
	if r.Rand != nil {
		return r.Rand.Intn(n)
	}
	return rand.Intn(n)
}

func resident(a *agent.Agent) *Resident {
	if m, ok := agent.ComponentOf[*Miner](a); ok {
		return &m.Resident
	}
	if h, ok := agent.ComponentOf[*HouseKeeper](a); ok {
		return &h.Resident
	}
	return nil
}

// ChangeLocation moves a to loc, walking there when the place is known.
func ChangeLocation(a *agent.Agent, loc Location) {
	r := resident(a)
	if r == nil {
		return
	}
	r.Location = loc
	if p, ok := r.Places[loc]; ok {
		a.Navigate(p)
	}
}

// Send delivers a telegram from a to its partner.
func Send(a *agent.Agent, t Telegram) {
	if r := resident(a); r != nil && r.Partner != nil {
		Receive(r.Partner, t)
	}
}

// Receive handles a telegram arriving at a.
func Receive(a *agent.Agent, t Telegram) {
	if _, ok := agent.ComponentOf[*Miner](a); ok {
		if t == StewReady && agent.IsInState[GoHomeAndSleepTillRested](a) {
			agent.SetState[EatStew](a)
		}
		return
	}
	if _, ok := agent.ComponentOf[*HouseKeeper](a); ok {
		if t == HiHoneyImHome {
			a.Log("Hi honey. Let me make you some of mah fine country stew.")
			agent.SetState[CookStew](a)
			return
		}
		Send(a, StewReady)
	}
}

// Miner digs for gold, banks it, drinks and sleeps.
type Miner struct {
	Resident
	MoneyInBank int
	Gold        int
	Thirst      int
	Fatigue     int
	MaxGold     int
	MaxThirst   int
	MaxFatigue  int
}

func NewMiner() *Miner {
	return &Miner{MaxGold: 2, MaxThirst: 5, MaxFatigue: 4}
}

func (m *Miner) PocketsFull() bool { return m.Gold >= m.MaxGold }
func (m *Miner) Thirsty() bool     { return m.Thirst >= m.MaxThirst }
func (m *Miner) Tired() bool       { return m.Fatigue >= m.MaxFatigue }
func (m *Miner) Rested() bool      { return m.Fatigue <= 0 }

// AddGold picks up a nugget. Only works at the mine.
func (m *Miner) AddGold() {
	if m.Location == GoldMine {
		m.Gold = min(m.Gold+1, m.MaxGold)
	}
}

// IncreaseFatigue tires the miner. Only digging is tiring.
func (m *Miner) IncreaseFatigue() {
	if m.Location == GoldMine {
		m.Fatigue = min(m.Fatigue+1, m.MaxFatigue)
	}
}

// Rest recovers one point of fatigue at home.
func (m *Miner) Rest() {
	if m.Location == Home {
		m.Fatigue = max(m.Fatigue-1, 0)
	}
}

// DepositGold banks everything carried. Only works at the bank.
func (m *Miner) DepositGold() {
	if m.Location == Bank {
		m.MoneyInBank += m.Gold
		m.Gold = 0
	}
}

// Drink quenches thirst at the saloon.
func (m *Miner) Drink() {
	if m.Location == Saloon {
		m.Thirst = 0
	}
}

func (m *Miner) IncreaseThirst() {
	m.Thirst = min(m.Thirst+1, m.MaxThirst)
}

// HouseKeeper keeps the shack and cooks.
type HouseKeeper struct {
	Resident
}

func miner(a *agent.Agent) *Miner {
	m, _ := agent.ComponentOf[*Miner](a)
	return m
}

// WestWorldMind starts each character in its first state, makes the miner
// thirstier every turn and sends the housekeeper to the bathroom now and then.
type WestWorldMind struct{ agent.BaseState }

func (*WestWorldMind) Enter(a *agent.Agent) {
	if miner(a) != nil {
		agent.SetState[EnterMineAndDigForNugget](a)
		return
	}
	agent.SetState[DoHousework](a)
}

func (*WestWorldMind) Execute(a *agent.Agent) {
	if h, ok := agent.ComponentOf[*HouseKeeper](a); ok {
		if h.intn(10) == 0 {
			agent.PushState[VisitBathroom](a)
		}
		return
	}
	if m := miner(a); m != nil {
		m.IncreaseThirst()
	}
}

type EnterMineAndDigForNugget struct{}

func (*EnterMineAndDigForNugget) Enter(a *agent.Agent) {
	if m := miner(a); m != nil && m.Location != GoldMine {
		ChangeLocation(a, GoldMine)
		a.Log("Walkin' to the gold mine.")
	}
}

func (*EnterMineAndDigForNugget) Execute(a *agent.Agent) {
	m := miner(a)
	if m == nil {
		return
	}
	m.IncreaseFatigue()
	m.AddGold()
	a.Log("Pickin' up a nugget.")
	if m.PocketsFull() {
		agent.SetState[VisitBankAndDepositGold](a)
		return
	}
	if m.Thirsty() {
		agent.SetState[QuenchThirst](a)
	}
}

func (*EnterMineAndDigForNugget) Exit(a *agent.Agent) {
	a.Log("Ah'm leavin' the gold mine with mah pockets full o' sweet gold.")
}

type VisitBankAndDepositGold struct{}

func (*VisitBankAndDepositGold) Enter(a *agent.Agent) {
	if m := miner(a); m != nil && m.Location != Bank {
		ChangeLocation(a, Bank)
		a.Log("Goin' to the bank. Yes siree.")
	}
}

func (*VisitBankAndDepositGold) Execute(a *agent.Agent) {
	m := miner(a)
	if m == nil {
		return
	}
	m.DepositGold()
	a.Log(fmt.Sprintf("Depositin' gold. Total savings now: %d", m.MoneyInBank))
	if !m.Tired() {
		agent.SetState[EnterMineAndDigForNugget](a)
		return
	}
	a.Log("Woohoo! Rich enough for now. Back home to mah li'l lady.")
	agent.SetState[GoHomeAndSleepTillRested](a)
}

func (*VisitBankAndDepositGold) Exit(a *agent.Agent) { a.Log("Leavin' the bank.") }

type GoHomeAndSleepTillRested struct{}

func (*GoHomeAndSleepTillRested) Enter(a *agent.Agent) {
	m := miner(a)
	if m == nil || m.Location == Home {
		return
	}
	ChangeLocation(a, Home)
	a.Log("Walkin' home.")
	Send(a, HiHoneyImHome)
}

func (*GoHomeAndSleepTillRested) Execute(a *agent.Agent) {
	m := miner(a)
	if m == nil {
		return
	}
	m.Rest()
	a.Log("ZZZZ...")
	if m.Rested() {
		agent.SetState[EnterMineAndDigForNugget](a)
	}
}

func (*GoHomeAndSleepTillRested) Exit(a *agent.Agent) {
	a.Log("What a God-darn fantastic nap! Time to find more gold.")
}

type QuenchThirst struct{}

func (*QuenchThirst) Enter(a *agent.Agent) {
	if m := miner(a); m != nil && m.Location != Saloon {
		ChangeLocation(a, Saloon)
		a.Log("Boy, ah sure is thusty! Walkin' to the saloon")
	}
}

func (*QuenchThirst) Execute(a *agent.Agent) {
	m := miner(a)
	if m == nil {
		return
	}
	m.Drink()
	a.Log("That's mighty fine sippin liquor.")
	agent.SetState[EnterMineAndDigForNugget](a)
}

func (*QuenchThirst) Exit(a *agent.Agent) { a.Log("Leavin' the saloon, feelin' good.") }

type EatStew struct{}

func (*EatStew) Enter(a *agent.Agent) {
	a.Log("Okay hun, ahm a-comin'!")
	a.Log("Smells reaaal goood, Elsa!")
}

func (*EatStew) Execute(a *agent.Agent) {
	a.Log("Tastes real good too!")
	agent.SetState[GoHomeAndSleepTillRested](a)
}

func (*EatStew) Exit(a *agent.Agent) {
	a.Log("Thank ya li'l lady. Ah better get back to whatever ah wuz doin'.")
}

type DoHousework struct{}

func (*DoHousework) Enter(a *agent.Agent) { a.Log("Time to do some more housework!") }

func (*DoHousework) Execute(a *agent.Agent) {
	r := resident(a)
	if r == nil {
		return
	}
	switch r.intn(4) {
	case 3:
		a.Log("Washin' the dishes.")
	case 2:
		a.Log("Makin' the bed.")
	case 1:
		a.Log("Moppin' the floor.")
	}
}

func (*DoHousework) Exit(*agent.Agent) {}

type CookStew struct{}

func (*CookStew) Enter(a *agent.Agent) { a.Log("Puttin' the stew in the oven.") }

func (*CookStew) Execute(a *agent.Agent) {
	a.Log("Fussin' over food.")
	if r := resident(a); r != nil && r.intn(5) == 0 {
		agent.SetState[DoHousework](a)
	}
}

func (*CookStew) Exit(a *agent.Agent) {
	a.Log("Stew ready! Let's eat.")
	Send(a, StewReady)
	a.Log("Puttin' the stew on the table.")
}

// VisitBathroom returns to whatever the housekeeper was doing before.
type VisitBathroom struct{}

func (*VisitBathroom) Enter(a *agent.Agent) {
	a.Log("Walkin' to the can. Need to powda mah pretty li'l nose")
}

func (*VisitBathroom) Execute(a *agent.Agent) {
	a.Log("Ahhhhhh! Sweet relief!")
	if !a.PopState() {
		agent.SetState[DoHousework](a)
	}
}

func (*VisitBathroom) Exit(a *agent.Agent) { a.Log("Leavin' the john.") }

// NewWestWorld builds the miner and housekeeper pair. places may be nil.
func NewWestWorld(places map[Location]geom.Vec3, rng *rand.Rand, integration agent.Integration) (minerAgent, keeperAgent *agent.Agent) {
	m := NewMiner()
	m.Places = places
	m.Rand = rng
	h := &HouseKeeper{Resident: Resident{Rand: rng}}

	start := geom.Vec3{}
	if p, ok := places[Home]; ok {
		start = p
	}
	minerAgent = agent.New(agent.Options{
		Name:        "Bob",
		Position:    start,
		MoveSpeed:   4,
		Integration: integration,
		Mind:        &WestWorldMind{},
		Measure:     agent.PerformanceFunc(func(*agent.Agent) float64 { return float64(m.MoneyInBank) }),
		Components:  []any{m},
	})
	keeperAgent = agent.New(agent.Options{
		Name:        "Elsa",
		Position:    start,
		Integration: integration,
		Mind:        &WestWorldMind{},
		Components:  []any{h},
	})
	m.Partner = keeperAgent
	h.Partner = minerAgent
	return minerAgent, keeperAgent
}
