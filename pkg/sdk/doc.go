// Package ragdex provides a Go client for the ragdex retrieval-augmented
// generation API.
//
//	client := ragdex.New("http://localhost:8080", ragdex.WithAPIKey("secret"))
//
//	turn, _ := client.Chat(ctx, "", "What documents do I need for a mortgage?")
//	fmt.Println(turn.Answer)
//
//	// Continue the conversation with the returned session id.
//	turn, _ = client.Chat(ctx, turn.SessionID, "And for a second home?")
//
// Single grounded answers and raw retrieval are available without a session:
//
//	ans, _ := client.Query(ctx, ragdex.QueryRequest{Question: "Max LTV?"})
//	chunks, _ := client.Retrieve(ctx, ragdex.RetrieveRequest{Query: "LTV", Technique: "mmr"})
package ragdex
