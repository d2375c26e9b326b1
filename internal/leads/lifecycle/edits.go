package lifecycle

import (
	"strings"

	"sourcing_backend/internal/calendar"
	"sourcing_backend/internal/leads/repository"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/phone"
	"sourcing_backend/platform/sanitize"
)

// applyEdits starts the next state from the current row and overlays edits.
// Status, sale, rejection, commission and calendar fields are filled in by the caller.
func applyEdits(current repository.Lead, e Edits) (repository.LifecycleUpdate, error) {
	next := repository.LifecycleUpdate{
		Title:         current.Title,
		Address:       current.Address,
		Phone:         current.Phone,
		Notes:         current.Notes,
		Condition:     current.Condition,
		PurchasePrice: current.PurchasePrice,
		RetailPrice:   current.RetailPrice,
		PickupStart:   current.PickupStart,
		PickupEnd:     current.PickupEnd,
		ImageURL:      current.ImageURL,
	}

	if e.Title != nil {
		title := sanitize.Line(*e.Title)
		if title == "" {
			return next, apperr.Validation("title cannot be empty").WithCode("invalid_title")
		}
		next.Title = title
	}
	if e.Address != nil {
		next.Address = sanitize.Line(*e.Address)
	}
	if e.Phone != nil {
		next.Phone = phone.NormalizeE164(*e.Phone)
	}
	if e.Notes != nil {
		next.Notes = sanitize.Text(*e.Notes)
	}
	if e.Condition != nil {
		next.Condition = strings.ToLower(sanitize.Line(*e.Condition))
	}
	if e.PurchasePrice != nil {
		if e.PurchasePrice.IsNegative() {
			return next, apperr.Validation("purchase price cannot be negative").WithCode("invalid_purchase_price")
		}
		next.PurchasePrice = *e.PurchasePrice
	}
	if e.ClearRetailPrice {
		next.RetailPrice = nil
	} else if e.RetailPrice != nil {
		if e.RetailPrice.IsNegative() {
			return next, apperr.Validation("retail price cannot be negative").WithCode("invalid_retail_price")
		}
		retail := *e.RetailPrice
		next.RetailPrice = &retail
	}
	if e.PickupStart != nil {
		next.PickupStart = *e.PickupStart
	}
	if e.PickupEnd != nil {
		next.PickupEnd = *e.PickupEnd
	}
	if !next.PickupEnd.After(next.PickupStart) {
		return next, apperr.Validation("pickup end must be after pickup start").WithCode("invalid_pickup_window")
	}
	if e.ImageURL != nil {
		url := strings.TrimSpace(*e.ImageURL)
		if url == "" {
			next.ImageURL = nil
		} else {
			next.ImageURL = &url
		}
	}

	return next, nil
}

// eventFieldsChanged reports whether anything mirrored into the calendar event changed.
func eventFieldsChanged(current repository.Lead, next repository.LifecycleUpdate) bool {
	return current.Title != next.Title ||
		current.Address != next.Address ||
		current.Phone != next.Phone ||
		current.Notes != next.Notes ||
		!current.PurchasePrice.Equal(next.PurchasePrice) ||
		!current.PickupStart.Equal(next.PickupStart) ||
		!current.PickupEnd.Equal(next.PickupEnd)
}

func details(next repository.LifecycleUpdate) (string, string) {
	d := repository.Lead{
		Title:         next.Title,
		Address:       next.Address,
		Phone:         phone.Display(next.Phone),
		Notes:         next.Notes,
		PurchasePrice: next.PurchasePrice,
	}.EventDetails()
	return d.Title, d.Description()
}

func eventInput(next repository.LifecycleUpdate) calendar.EventInput {
	title, description := details(next)
	return calendar.EventInput{
		Title:       title,
		Description: description,
		Start:       next.PickupStart,
		End:         next.PickupEnd,
	}
}

func eventPatch(next repository.LifecycleUpdate) calendar.EventPatch {
	title, description := details(next)
	start, end := next.PickupStart, next.PickupEnd
	return calendar.EventPatch{
		Title:       &title,
		Description: &description,
		Start:       &start,
		End:         &end,
	}
}
