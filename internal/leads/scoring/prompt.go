package scoring

import (
	"fmt"
	"strings"
)

const systemPrompt = `You review second-hand furniture leads for a pickup-and-resell business.
Decide whether picking the item up and flipping it is likely to be profitable.
Reply with a single JSON object and nothing else:
{"verdict":"ACCEPT" or "REJECT","estimatedResaleRange":{"low":number,"high":number},"reasoning":"one or two sentences"}`

func buildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	fmt.Fprintf(&b, "Purchase Price: %s\n", in.PurchasePrice.StringFixed(2))
	if in.RetailPrice != nil {
		fmt.Fprintf(&b, "Projected Sale Price: %s\n", in.RetailPrice.StringFixed(2))
	}
	if in.Condition != "" {
		fmt.Fprintf(&b, "Condition: %s\n", in.Condition)
	}
	if in.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", in.Notes)
	}
	return b.String()
}
