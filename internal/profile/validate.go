package profile

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"clipto/internal/chain"
	"clipto/internal/services"
)

// MsgFixErrors is the toast shown when any profile field is invalid.
const MsgFixErrors = "Please fix the errors."

// Form holds the raw profile form values as typed by the creator.
type Form struct {
	Address        string
	UserName       string
	Bio            string
	ProfilePicture string
	DeliveryTime   string
	Price          string
	TweetURL       string
	Demos          [3]string
}

// Validate checks form and returns per-field messages. The tweet url is only
// required when creating a profile.
func Validate(form Form, creating bool) error {
	fields := services.FieldErrors{}
	if form.Bio == "" {
		fields.Add("bio", "Please enter a bio.")
	}
	if form.UserName == "" {
		fields.Add("userName", "Username cannot be empty.")
	}
	switch {
	case form.ProfilePicture == "":
		fields.Add("profilePicture", "Profile picture can not be empty.")
	case !isURL(form.ProfilePicture):
		fields.Add("profilePicture", "Profile picture must be an url.")
	}
	if msg := deliveryTimeError(form.DeliveryTime); msg != "" {
		fields.Add("deliveryTime", msg)
	}
	for i, demo := range form.Demos {
		if demo != "" && !isURL(demo) {
			fields.Add("demo"+strconv.Itoa(i+1), "This link is invalid.")
		}
	}
	if price, err := parseNumber(form.Price); err != nil {
		fields.Add("price", "Price is not a number.")
	} else if price <= 0 {
		fields.Add("price", "Price must be greater than 0.")
	}
	if creating {
		switch {
		case form.TweetURL == "":
			fields.Add("tweetUrl", "Tweet url can not be empty.")
		case !isURL(form.TweetURL):
			fields.Add("tweetUrl", "Tweet url must be an url.")
		}
	}
	if !chain.IsAddress(form.Address) {
		fields.Add("address", "Please enter a valid address.")
	}
	return services.WithUserMessage(fields.Err(), MsgFixErrors)
}

func deliveryTimeError(raw string) string {
	days, err := parseNumber(raw)
	if err != nil {
		return "Delivery time is not a number."
	}
	if math.Trunc(days) <= 0 {
		return "Delivery time must be greater than 0 days."
	}
	if days != math.Trunc(days) || strconv.FormatInt(int64(days), 10) != raw {
		return "Delivery time cannot be a decimal or have leading zeros."
	}
	return ""
}

func parseNumber(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, strconv.ErrSyntax
	}
	return value, nil
}

func isURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return false
	}
	return parsed.Host != "" || parsed.Opaque != ""
}

func (f Form) demoLinks() []string {
	links := make([]string, 0, len(f.Demos))
	for _, demo := range f.Demos {
		if demo != "" {
			links = append(links, demo)
		}
	}
	return links
}
