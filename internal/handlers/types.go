package handlers

import "time"

// LinkBody is the public representation of a link.
type LinkBody struct {
	ID        int64     `doc:"Link id"                  example:"42"                            json:"id"`
	Code      string    `doc:"The short code"           example:"abc12345"                      json:"code"`
	RealURL   string    `doc:"The normalized destination" example:"https://example.com/long/path" json:"real_url"`
	ShortURL  string    `doc:"The full short URL"       example:"https://sho.rt/u/abc12345"     json:"short_url"`
	Clicks    int64     `doc:"Redirect count"           example:"7"                             json:"clicks"`
	CreatedAt time.Time `doc:"Creation time"                                                    json:"created_at"`
}

// CreateLinkRequest is the request body for creating a link.
type CreateLinkRequest struct {
	Body struct {
		RealURL string `doc:"The URL to shorten"                     example:"https://example.com/long/path" json:"real_url"`
		Code    string `doc:"Custom short code, generated when empty" example:"launch" json:"code,omitempty" required:"false"`
	}
}

// CreateLinkResponse is the response for a created link.
type CreateLinkResponse struct {
	Location string `doc:"The short URL" header:"Location"`
	Body     LinkBody
}

// ListLinksResponse lists the caller's links.
type ListLinksResponse struct {
	Body struct {
		Links []LinkBody `json:"links"`
	}
}

// LinkKeyRequest addresses a link by numeric id or code.
type LinkKeyRequest struct {
	Key string `doc:"Link id or short code" example:"abc12345" path:"key"`
}

// GetLinkResponse returns a single link.
type GetLinkResponse struct {
	Body LinkBody
}

// DeleteLinkResponse reports how a link was removed.
type DeleteLinkResponse struct {
	Body struct {
		Deleted bool `doc:"Always true on success"                        json:"deleted"`
		Soft    bool `doc:"True when the record was tombstoned, not removed" json:"soft"`
	}
}

// RedirectRequest is the request for following a short link.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc12345" path:"code"`
}

// RedirectResponse is an uncacheable redirect to the destination.
type RedirectResponse struct {
	Status       int
	Location     string `header:"Location"`
	CacheControl string `header:"Cache-Control"`
	Pragma       string `header:"Pragma"`
	Expires      string `header:"Expires"`
	RobotsTag    string `header:"X-Robots-Tag"`
}
