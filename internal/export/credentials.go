// Package export renders generated city credentials for hand-over.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"trafficportal/internal/models"
	"trafficportal/internal/registry"
)

const credentialsSheet = "Credentials"

var credentialHeaders = []string{"City", "Code", "Title", "Role", "Username", "Email", "Password", "Status"}

// CredentialsSheet writes one row per generated account of every city.
// emailDomain builds the login email the same way the registry does.
func CredentialsSheet(emailDomain string, cities ...models.City) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", credentialsSheet); err != nil {
		return nil, err
	}

	for i, header := range credentialHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(credentialsSheet, cell, header); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, city := range cities {
		for _, user := range city.Users {
			values := []any{
				city.CityName,
				city.CityCode,
				user.Title,
				string(user.Role),
				user.Username,
				registry.LoginEmail(user.Username, city.CityCode, emailDomain),
				user.Password,
				user.Status,
			}
			if err := f.SetSheetRow(credentialsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
				return nil, err
			}
			row++
		}
	}

	if err := f.SetColWidth(credentialsSheet, "A", "B", 14); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(credentialsSheet, "C", "F", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(credentialsSheet, "G", "H", 16); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write credentials sheet: %w", err)
	}
	return &buf, nil
}

