// Package reports renders exports of users and projects as CSV and PDF.
package reports

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/BradenHooton/swgfv/internal/models"
)

var userHeader = []string{
	"id", "email", "first_name", "paternal_surname", "maternal_surname",
	"phone", "role", "active", "created_at",
}

// UsersCSV writes one row per user. Password material is never exported.
func UsersCSV(w io.Writer, users []*models.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(userHeader); err != nil {
		return fmt.Errorf("write users csv header: %w", err)
	}
	for _, u := range users {
		active := "no"
		if u.Active {
			active = "yes"
		}
		record := []string{
			fmt.Sprintf("%d", u.ID),
			u.Email,
			u.FirstName,
			u.PaternalSurname,
			u.MaternalSurname,
			u.Phone,
			u.Role,
			active,
			u.CreatedAt.UTC().Format(dateLayout),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write users csv row %d: %w", u.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
