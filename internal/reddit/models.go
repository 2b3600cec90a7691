// ABOUTME: Wire types for Reddit listing and comment API responses
package reddit

// thing is the union of listing post and inbox message fields we read.
type thing struct {
	Name        string  `json:"name"`
	ParentID    string  `json:"parent_id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	LinkTitle   string  `json:"link_title"`
	SelfText    string  `json:"selftext"`
	Body        string  `json:"body"`
	Author      string  `json:"author"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data thing  `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type commentResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
		Data   struct {
			Things []struct {
				Data struct {
					Name string `json:"name"`
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}
