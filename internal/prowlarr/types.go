package prowlarr

import "time"

// Release is a candidate release returned by the indexer aggregator,
// before scoring. GUID is assumed stable and globally unique per
// aggregator instance.
type Release struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Size        int64     `json:"size"`
	Seeders     int       `json:"seeders"`
	PublishedAt time.Time `json:"publishedAt"`
	DownloadURL string    `json:"downloadUrl"`
	Indexer     string    `json:"indexer"`
	Categories  []int     `json:"categories"`
}

// searchResult mirrors the aggregator's REST search response.
type searchResult struct {
	GUID        string `json:"guid"`
	Title       string `json:"title"`
	Size        int64  `json:"size"`
	Seeders     int    `json:"seeders"`
	Leechers    int    `json:"leechers"`
	PublishDate string `json:"publishDate"`
	DownloadURL string `json:"downloadUrl"`
	MagnetURL   string `json:"magnetUrl"`
	Indexer     string `json:"indexer"`
	IndexerID   int    `json:"indexerId"`
	Protocol    string `json:"protocol"`
	Categories  []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
}

func (r *searchResult) toRelease() Release {
	published, _ := time.Parse(time.RFC3339, r.PublishDate)

	downloadURL := r.DownloadURL
	if downloadURL == "" {
		downloadURL = r.MagnetURL
	}

	categories := make([]int, 0, len(r.Categories))
	for _, c := range r.Categories {
		categories = append(categories, c.ID)
	}

	return Release{
		GUID:        r.GUID,
		Title:       r.Title,
		Size:        r.Size,
		Seeders:     r.Seeders,
		PublishedAt: published,
		DownloadURL: downloadURL,
		Indexer:     r.Indexer,
		Categories:  categories,
	}
}
