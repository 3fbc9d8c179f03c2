// Package dendrex embeds the dendrex analysis pipeline in a Go program.
//
// Rows are decoded spreadsheet records keyed by column name. Rows sharing an
// id are merged into one document, compared by TF-IDF cosine similarity and
// clustered hierarchically. The result is a reordered similarity matrix plus
// a plottable dendrogram.
//
//	client, _ := dendrex.New(dendrex.WithMaxEntities(50))
//	res, err := client.Analyze(ctx, rows)
//	if errors.Is(err, dendrex.ErrSchema) {
//	    // a required column is missing
//	}
//	fmt.Println(res.IDs, res.Dendrogram.Leaves)
//
// # Two-phase analysis
//
//	corpus, _ := client.Preprocess(ctx, rows)
//	// inspect or edit corpus.Documents
//	res, _ := client.AnalyzeCorpus(ctx, corpus)
//
// # Card sorting
//
//	res, _ := client.CardSort(ctx, []dendrex.Placement{
//	    {Participant: "p1", Card: "1", Label: "Login", Group: "Account"},
//	})
package dendrex
