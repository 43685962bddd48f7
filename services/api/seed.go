package api

import "time"

// seedToken installs the well-known sample gift so the single-recipient
// deployment works with zero authoring steps.
func seedToken(ts *tokenStore, id string, now time.Time) {
	ts.put(GiftToken{
		ID:        id,
		Content:   sampleContent(),
		CreatedAt: now,
	})
}

func sampleContent() GiftContent {
	return GiftContent{
		RecipientName: "Chandrika",
		Media: []MediaItem{
			{
				ID:      "1",
				Type:    "image",
				URL:     "https://images.unsplash.com/photo-1527853787696-f7be74f2e39a?w=800&q=80",
				Caption: "Spring adventures",
				Date:    "March 2024",
				Note:    "Exploring new places together",
			},
			{
				ID:      "2",
				Type:    "image",
				URL:     "https://images.unsplash.com/photo-1511988617509-a57c8a288659?w=800&q=80",
				Caption: "Summer movie nights",
				Date:    "June 2024",
				Note:    "Cozy evenings with our favorite films",
			},
			{
				ID:      "3",
				Type:    "image",
				URL:     "https://images.unsplash.com/photo-1543332143-4e8c27e3256a?w=800&q=80",
				Caption: "Autumn coffee dates",
				Date:    "October 2024",
				Note:    "Warm conversations over warm drinks",
			},
			{
				ID:      "4",
				Type:    "image",
				URL:     "https://images.unsplash.com/photo-1521017432531-fbd92d768814?w=800&q=80",
				Caption: "Winter celebrations",
				Date:    "December 2024",
				Note:    "Holiday memories we'll always treasure",
			},
			{
				ID:      "5",
				Type:    "image",
				URL:     "https://images.unsplash.com/photo-1502086223501-7ea6ecd79368?w=800&q=80",
				Caption: "Special moments",
				Date:    "Various times",
				Note:    "The little things that made us smile",
			},
			{
				ID:      "6",
				Type:    "image",
				URL:     "https://images.unsplash.com/photo-1464822759023-fed622ff2c3b?w=800&q=80",
				Caption: "Friendship goals",
				Date:    "Throughout the year",
				Note:    "Celebrating our bond",
			},
		},
		Messages: map[string]MessageBlock{
			"craig": {
				ShortMessage: "Craig's heartfelt message",
				FullMessage: "Dearest Chandrika,\n\nHappy Birthday! Looking back at this past year, " +
					"the memories we made together have been some of the most meaningful in my life. " +
					"I am sorry for the times I let you down, and grateful for every moment you shared with us.\n\n" +
					"Wishing you happiness, success, and love in the year ahead.\n\nWith warm birthday wishes,\nCraig",
			},
			"simbisai": {
				ShortMessage: "Message from Simby",
				FullMessage: "Dear Chandrika,\n\nHappy Birthday! I know I broke your trust, and I take " +
					"responsibility for it. You were patient and kind, far more forgiving than I earned. " +
					"I hope the world gives you back all the good you have poured into it.\n\n" +
					"With gratitude and a smile I can't quite hide,\nSimbisai",
			},
		},
	}
}
