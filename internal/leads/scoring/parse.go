package scoring

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type Verdict string

const (
	VerdictAccept  Verdict = "ACCEPT"
	VerdictReject  Verdict = "REJECT"
	VerdictUnknown Verdict = "UNKNOWN"
)

// ResaleRange is the advisor's estimated resale price band.
type ResaleRange struct {
	Low  decimal.Decimal `json:"low"`
	High decimal.Decimal `json:"high"`
}

// Evaluation is the parsed advisor answer.
type Evaluation struct {
	Verdict              Verdict
	EstimatedResaleRange *ResaleRange
	Reasoning            string
	// Warning is set when the answer was only partly usable.
	Warning string
}

var errUnparseable = errors.New("no verdict found in advisor response")

type rawEvaluation struct {
	Verdict              string       `json:"verdict"`
	EstimatedResaleRange *ResaleRange `json:"estimatedResaleRange"`
	Reasoning            string       `json:"reasoning"`
}

// ParseEvaluation reads the JSON answer, tolerating code fences and
// surrounding prose. A bare ACCEPT or REJECT is accepted too.
func ParseEvaluation(raw string) (Evaluation, error) {
	text := strings.TrimSpace(raw)
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		var parsed rawEvaluation
		if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err == nil {
			verdict, ok := parseVerdict(parsed.Verdict)
			if !ok {
				return Evaluation{}, errUnparseable
			}
			eval := Evaluation{
				Verdict:   verdict,
				Reasoning: strings.TrimSpace(parsed.Reasoning),
			}
			if r := parsed.EstimatedResaleRange; r != nil {
				if r.Low.IsNegative() || r.High.LessThan(r.Low) {
					eval.Warning = "estimated resale range was inconsistent and was dropped"
				} else {
					eval.EstimatedResaleRange = r
				}
			}
			return eval, nil
		}
	}

	if verdict, ok := parseVerdict(strings.Trim(text, "`'\". \n")); ok {
		return Evaluation{Verdict: verdict}, nil
	}
	return Evaluation{}, errUnparseable
}

func parseVerdict(s string) (Verdict, bool) {
	switch Verdict(strings.ToUpper(strings.TrimSpace(s))) {
	case VerdictAccept:
		return VerdictAccept, true
	case VerdictReject:
		return VerdictReject, true
	}
	return "", false
}
