package agent

const routerPrompt = `Classify the user query into one of these categories:
- "rag": Question about housing, real estate, home loans, tax credits, mortgages, homebuyer guides, or documents in our knowledge base.
- "web_search": Current events, news, prices, or information that may not be in our documents.
- "general": Greetings, chitchat, thanks, or simple conversational messages.

Respond with exactly one word: rag, web_search, or general.`

const relevancePromptTemplate = `Evaluate if the retrieved context is relevant to answer the question.
Context: %s
Question: %s
Answer: %s

Respond with "yes" or "no" only.`

const hallucinationPromptTemplate = `Does this answer contain information that is NOT supported by the provided context?
Context: %s
Answer: %s

Respond with "yes" or "no" only. If the answer says "Not enough context", respond "no".`

const webSummaryPrompt = `Summarize the following web search results for the user's question. Be concise.`

const generalPrompt = `You are a helpful real estate assistant. Respond briefly and friendly to chitchat, greetings, or thanks.`
