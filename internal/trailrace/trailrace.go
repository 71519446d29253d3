// Package trailrace defines the core domain types of the race site and the
// pure rules that operate on them: ages, age categories, bib numbers and
// participant filters. It performs no I/O.
package trailrace

import "time"

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyUltra        Difficulty = "ultra"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyUltra:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type Race struct {
	ID                     int64      `json:"id"`
	Name                   Localized  `json:"name"`
	Description            Localized  `json:"description"`
	DistanceKm             float64    `json:"distance"`
	ElevationGainM         int        `json:"elevation"`
	Difficulty             Difficulty `json:"difficulty"`
	Date                   time.Time  `json:"date"`
	Price                  float64    `json:"price"`
	ImageURL               string     `json:"imageUrl,omitempty"`
	MapURL                 string     `json:"mapUrl,omitempty"`
	IsEMACertified         bool       `json:"isEmaCertified"`
	IsNationalChampionship bool       `json:"isNationalChampionship"`
}

// RaceUpdate holds the administratively mutable fields of a race. Nil
// fields are left unchanged.
type RaceUpdate struct {
	ImageURL *string `json:"imageUrl,omitempty"`
	MapURL   *string `json:"mapUrl,omitempty"`
}

type Participant struct {
	ID                    int64     `json:"id"`
	FirstName             string    `json:"firstName"`
	LastName              string    `json:"lastName"`
	Email                 string    `json:"email"`
	Phone                 string    `json:"phone"`
	Country               string    `json:"country"`
	BirthDate             time.Time `json:"birthDate"`
	Age                   int       `json:"age"`
	Gender                Gender    `json:"gender"`
	RaceID                int64     `json:"raceId"`
	BibNumber             string    `json:"bibNumber"`
	Status                Status    `json:"status"`
	MedicalInfo           string    `json:"medicalInfo,omitempty"`
	IsEMAParticipant      bool      `json:"isEmaParticipant"`
	TShirtSize            string    `json:"tshirtSize,omitempty"`
	EmergencyContactName  string    `json:"emergencyContactName,omitempty"`
	EmergencyContactPhone string    `json:"emergencyContactPhone,omitempty"`
	RegistrationDate      time.Time `json:"registrationDate"`

	Payment *PaymentLink `json:"payment,omitempty"`
}

func (p Participant) FullName() string {
	return p.FirstName + " " + p.LastName
}

// PaymentLink is the correlation metadata recorded when a payment intent
// is created for a participant. Token holds the provider's intent id.
type PaymentLink struct {
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"-"`
}

type ContactInquiry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type FAQ struct {
	ID       int64     `json:"id"`
	Question Localized `json:"question"`
	Answer   Localized `json:"answer"`
	Order    int       `json:"order"`
}

type ProgramEvent struct {
	ID          int64     `json:"id"`
	Day         string    `json:"day"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime,omitempty"`
	Title       Localized `json:"title"`
	Description Localized `json:"description"`
	Location    string    `json:"location,omitempty"`
}

type SponsorLevel string

const (
	SponsorPlatinum SponsorLevel = "platinum"
	SponsorGold     SponsorLevel = "gold"
	SponsorSilver   SponsorLevel = "silver"
	SponsorBronze   SponsorLevel = "bronze"
	SponsorPartner  SponsorLevel = "partner"
)

type Sponsor struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description Localized    `json:"description"`
	LogoURL     string       `json:"logoUrl,omitempty"`
	Website     string       `json:"website,omitempty"`
	Level       SponsorLevel `json:"level"`
	Order       int          `json:"order"`
}

// User is an administrator account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
