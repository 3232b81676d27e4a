package forum

import "encoding/json"

type Post struct {
	Id         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Subreddit  string  `json:"subreddit"`
	CreatedUtc float64 `json:"created_utc"`
}

// Page is one slice of a listing walk. An empty After cursor means the
// listing is exhausted.
type Page struct {
	Posts []Post
	After string
}

type listingEnvelope struct {
	Data struct {
		Children []struct {
			Data Post `json:"data"`
		} `json:"children"`
		After string `json:"after"`
	} `json:"data"`
}

type commentNode struct {
	Kind string `json:"kind"`
	Data struct {
		Body string `json:"body"`
		// either a nested envelope or "" when there are no replies,
		// which is why this can't unmarshal into a struct directly
		Replies json.RawMessage `json:"replies"`
	} `json:"data"`
}

type commentEnvelope struct {
	Data struct {
		Children []commentNode `json:"children"`
	} `json:"data"`
}

func collectComments(envelope commentEnvelope, out *[]string) {
	for _, node := range envelope.Data.Children {
		if node.Kind != "t1" {
			continue
		}
		if node.Data.Body != "" {
			*out = append(*out, node.Data.Body)
		}
		if len(node.Data.Replies) == 0 || string(node.Data.Replies) == `""` {
			continue
		}
		var nested commentEnvelope
		err := json.Unmarshal(node.Data.Replies, &nested)
		if err != nil {
			continue
		}
		collectComments(nested, out)
	}
}
