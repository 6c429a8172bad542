package model

import "time"

// Program represents an event program (a schedule or agenda) owned by a
// single user.  A program holds any number of items and can be shared
// publicly through an opaque share token.  Programs stay editable after
// they have been shared.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – user ID of the program owner.
//  Title       – human readable title.
//  Description – free text, may be empty.
//  Date        – calendar day of the event (time component is zero, UTC).
//  Capacity    – optional attendee capacity.
//  ShareToken  – public share token; empty until the program is shared.
//  SharedAt    – when the program was first shared (nil if never).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Program struct {
	ID          uint64     // programs.id
	OwnerID     uint64     // programs.owner_id
	Title       string     // programs.title
	Description string     // programs.description
	Date        time.Time  // programs.date
	Capacity    *uint32    // programs.capacity (nullable)
	ShareToken  string     // programs.share_token (nullable, unique)
	SharedAt    *time.Time // programs.shared_at (nullable)
	CreatedAt   time.Time  // programs.created_at
	UpdatedAt   time.Time  // programs.updated_at
}

// IsShared reports whether a share token has been issued for the program.
func (p *Program) IsShared() bool {
	return p.ShareToken != ""
}

// ProgramItem is a time-boxed session inside a program.  Items of the
// same program must not overlap and carry a position that is unique
// within the program.
//
// Fields:
//  ID          – primary key identifier.
//  ProgramID   – owning program.
//  Title       – session title.
//  Description – free text, may be empty.
//  StartTime   – start instant (inclusive).
//  EndTime     – end instant (exclusive, must be after StartTime).
//  Position    – ordering position, unique per program.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type ProgramItem struct {
	ID          uint64    // program_items.id
	ProgramID   uint64    // program_items.program_id
	Title       string    // program_items.title
	Description string    // program_items.description
	StartTime   time.Time // program_items.start_time
	EndTime     time.Time // program_items.end_time
	Position    uint32    // program_items.position
	CreatedAt   time.Time // program_items.created_at
	UpdatedAt   time.Time // program_items.updated_at
}
