package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cadence is how often a plan comes due.
type Cadence string

const (
	// CadenceMonthly plans come due once per calendar month.
	CadenceMonthly Cadence = "monthly"
	// CadenceWeekly plans come due once per week on a fixed weekday.
	CadenceWeekly Cadence = "weekly"
)

// ParseCadence converts user input into a Cadence.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(strings.ToLower(strings.TrimSpace(s))) {
	case CadenceMonthly:
		return CadenceMonthly, nil
	case CadenceWeekly:
		return CadenceWeekly, nil
	default:
		return "", fmt.Errorf("unknown cadence %q (want monthly or weekly)", s)
	}
}

// Cadences lists every supported cadence.
func Cadences() []Cadence {
	return []Cadence{CadenceMonthly, CadenceWeekly}
}

// NotificationTiming controls when a pending installment is surfaced.
type NotificationTiming string

const (
	// TimingOnDueDate surfaces an installment from its due date onwards.
	TimingOnDueDate NotificationTiming = "on_due_date"
	// TimingNextWeek surfaces an installment one week after its due date.
	TimingNextWeek NotificationTiming = "next_week"
)

// ParseNotificationTiming converts user input into a NotificationTiming.
// An empty string yields the default TimingOnDueDate.
func ParseNotificationTiming(s string) (NotificationTiming, error) {
	switch NotificationTiming(strings.ToLower(strings.TrimSpace(s))) {
	case "", TimingOnDueDate:
		return TimingOnDueDate, nil
	case TimingNextWeek:
		return TimingNextWeek, nil
	default:
		return "", fmt.Errorf("unknown notification timing %q (want on_due_date or next_week)", s)
	}
}

// Track separates ordinary appointment billing from analysis billing.
type Track string

const (
	// TrackPrincipal covers plans owned directly by an appointment client.
	TrackPrincipal Track = "principal"
	// TrackTarot covers plans scoped to one analysis record.
	TrackTarot Track = "tarot"
)

// ParseTrack converts user input into a Track.
func ParseTrack(s string) (Track, error) {
	switch Track(strings.ToLower(strings.TrimSpace(s))) {
	case TrackPrincipal:
		return TrackPrincipal, nil
	case TrackTarot:
		return TrackTarot, nil
	default:
		return "", fmt.Errorf("unknown track %q (want principal or tarot)", s)
	}
}

// TrackFor returns the track implied by a linked record id.
func TrackFor(linkedRecordID string) Track {
	if linkedRecordID == "" {
		return TrackPrincipal
	}
	return TrackTarot
}

// PlanOwner identifies one plan: at most one installment set exists per owner.
type PlanOwner struct {
	ClientName     string
	LinkedRecordID string
	Cadence        Cadence
}

// Key returns the identity component used when building installment ids.
func (o PlanOwner) Key() string {
	if o.LinkedRecordID != "" {
		return o.LinkedRecordID
	}
	return slug(o.ClientName)
}

// PlanID names the plan independently of how the client name is spelled.
func (o PlanOwner) PlanID() string {
	return o.Key() + ":" + string(o.Cadence)
}

// SamePlan reports whether other names the same plan as o. Principal plans
// are matched on the slugged client name, so owners differing only in case
// or spacing share one installment set.
func (o PlanOwner) SamePlan(other PlanOwner) bool {
	return o.LinkedRecordID == other.LinkedRecordID && o.PlanID() == other.PlanID()
}

// SameClient reports whether two client names resolve to the same
// principal plans.
func SameClient(a, b string) bool {
	return slug(a) == slug(b)
}

func (o PlanOwner) String() string {
	if o.LinkedRecordID != "" {
		return fmt.Sprintf("%s/%s (%s)", o.ClientName, o.LinkedRecordID, o.Cadence)
	}
	return fmt.Sprintf("%s (%s)", o.ClientName, o.Cadence)
}

// InstallmentID derives the deterministic id of one installment so that
// regenerating a plan reproduces the same ids.
func InstallmentID(owner PlanOwner, sequenceIndex int) string {
	return owner.PlanID() + ":" + strconv.Itoa(sequenceIndex)
}

func slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// Installment is one scheduled, individually payable unit of a plan.
type Installment struct {
	DueDate            time.Time
	CreatedAt          time.Time
	Amount             decimal.Decimal
	ID                 string
	OwnerClientName    string
	LinkedRecordID     string
	Cadence            Cadence
	NotificationTiming NotificationTiming
	SequenceIndex      int
	TotalPeriods       int
	Pending            bool
	// Postponed is set when the due date was moved by hand.
	Postponed bool
}

// Owner returns the plan this installment belongs to.
func (i Installment) Owner() PlanOwner {
	return PlanOwner{
		ClientName:     i.OwnerClientName,
		LinkedRecordID: i.LinkedRecordID,
		Cadence:        i.Cadence,
	}
}

// Track returns the billing track of the installment.
func (i Installment) Track() Track {
	return TrackFor(i.LinkedRecordID)
}

// IsLast reports whether this is the final installment of its plan.
func (i Installment) IsLast() bool {
	return i.SequenceIndex == i.TotalPeriods
}

// installmentJSON is the persisted layout. Legacy consumers read "active",
// which carries the pending flag.
type installmentJSON struct {
	ID                 string             `json:"id"`
	OwnerClientName    string             `json:"ownerClientName"`
	LinkedRecordID     *string            `json:"linkedRecordId"`
	Cadence            Cadence            `json:"cadence"`
	SequenceIndex      int                `json:"sequenceIndex"`
	TotalPeriods       int                `json:"totalPeriods"`
	Amount             decimal.Decimal    `json:"amount"`
	DueDate            string             `json:"dueDate"`
	Active             bool               `json:"active"`
	Postponed          bool               `json:"postponed,omitempty"`
	NotificationTiming NotificationTiming `json:"notificationTiming"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// MarshalJSON encodes the installment in its persisted layout.
func (i Installment) MarshalJSON() ([]byte, error) {
	out := installmentJSON{
		ID:                 i.ID,
		OwnerClientName:    i.OwnerClientName,
		Cadence:            i.Cadence,
		SequenceIndex:      i.SequenceIndex,
		TotalPeriods:       i.TotalPeriods,
		Amount:             i.Amount,
		DueDate:            i.DueDate.Format(DateLayout),
		Active:             i.Pending,
		Postponed:          i.Postponed,
		NotificationTiming: i.NotificationTiming,
		CreatedAt:          i.CreatedAt,
	}
	if i.LinkedRecordID != "" {
		linked := i.LinkedRecordID
		out.LinkedRecordID = &linked
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the persisted layout.
func (i *Installment) UnmarshalJSON(data []byte) error {
	var in installmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	due, err := time.Parse(DateLayout, in.DueDate)
	if err != nil {
		return fmt.Errorf("invalid dueDate %q: %w", in.DueDate, err)
	}

	*i = Installment{
		ID:                 in.ID,
		OwnerClientName:    in.OwnerClientName,
		Cadence:            in.Cadence,
		SequenceIndex:      in.SequenceIndex,
		TotalPeriods:       in.TotalPeriods,
		Amount:             in.Amount,
		DueDate:            due,
		Pending:            in.Active,
		Postponed:          in.Postponed,
		NotificationTiming: in.NotificationTiming,
		CreatedAt:          in.CreatedAt,
	}
	if in.LinkedRecordID != nil {
		i.LinkedRecordID = *in.LinkedRecordID
	}
	return nil
}
