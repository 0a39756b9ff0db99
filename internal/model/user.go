package model

import "time"

// Role names carried in the JWT "role" claim.
const (
    RoleAdmin    = "ADMIN"
    RoleCustomer = "CUSTOMER"
)

// User represents an application user record as stored in the
// `users` table.  The booking engine only relies on the ID; email
// doubles as the username for "my reservations" lookups.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, also used as username.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or CUSTOMER.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
}
