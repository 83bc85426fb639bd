package pipeline

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/extract"
	"github.com/sells-group/bbb-collector/internal/model"
)

// DetailInstruction asks for the fields of one business detail page.
const DetailInstruction = `Extract the following information from this business detail page:
1. Business name (usually in the header)
2. Phone number (format as +1 followed by 10 digits)
3. Street address only (no city, state, or zip)
4. Principal contact name (look for "Principal Contacts" section - include the person's full name with titles like Mr., Ms., Mrs., Dr., etc. but EXCLUDE any role/position that comes after a comma like Owner, President, CEO, etc.)
5. Accreditation status (look for "BBB Accredited Business" label or seal - return "true" or "false")`

var detailSchema = extract.Schema{
	Name: "business_detail",
	Fields: []extract.Field{
		{Name: "name", Type: extract.TypeString, Description: "business name"},
		{Name: "phone", Type: extract.TypeString, Nullable: true, Description: "+1 followed by 10 digits"},
		{Name: "address", Type: extract.TypeString, Nullable: true, Description: "street address only"},
		{Name: "principalContact", Type: extract.TypeString, Nullable: true, Description: "principal contact full name without role"},
		{Name: "accreditationStatus", Type: extract.TypeString, Description: `"true" or "false"`},
	},
}

type detailFields struct {
	Name                string      `json:"name" validate:"required"`
	Phone               *string     `json:"phone"`
	Address             *string     `json:"address"`
	PrincipalContact    *string     `json:"principalContact"`
	AccreditationStatus looseString `json:"accreditationStatus"`
}

// looseString accepts a JSON string, boolean, or number and keeps its text.
// Models sometimes answer true where "true" was asked for.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case bool:
		*s = looseString(strconv.FormatBool(t))
	default:
		*s = looseString(strings.TrimSpace(string(b)))
	}
	return nil
}

// FetchDetail loads one detail page in s and extracts its record. Failures
// are logged and returned as an absent Outcome, never as an error.
func FetchDetail(ctx context.Context, s Session, detailURL string, timeout time.Duration) Outcome[model.BusinessRecord] {
	log := zap.L().With(zap.String("url", detailURL))

	if err := s.Navigate(ctx, detailURL, timeout); err != nil {
		log.Warn("pipeline: detail navigation failed", zap.Error(err))
		return absent[model.BusinessRecord](err)
	}

	var fields detailFields
	if err := s.Extract(ctx, DetailInstruction, detailSchema, &fields); err != nil {
		log.Warn("pipeline: detail extraction failed", zap.Error(err))
		return absent[model.BusinessRecord](err)
	}

	rec := model.BusinessRecord{
		Name:                strings.TrimSpace(fields.Name),
		Phone:               trimmed(fields.Phone),
		Address:             trimmed(fields.Address),
		URL:                 detailURL,
		AccreditationStatus: string(fields.AccreditationStatus),
		PrincipalContact:    trimmed(fields.PrincipalContact),
	}
	if id, ok := BusinessID(detailURL); ok {
		rec.BusinessID = &id
	}

	log.Debug("pipeline: detail extracted",
		zap.String("name", rec.Name),
		zap.String("business_id", rec.ID()),
	)
	return produced(rec)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return model.StringPtr(strings.TrimSpace(*s))
}
