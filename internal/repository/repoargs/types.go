package repoargs

type RepositoryName string

const (
	UserRepoName               RepositoryName = "user"
	WebsiteRepoName            RepositoryName = "website"
	OrderRepoName              RepositoryName = "order"
	BalanceTransactionRepoName RepositoryName = "balance_transaction"
	PayoutRepoName             RepositoryName = "payout_request"
	ConversationRepoName       RepositoryName = "conversation"
	DisputeRepoName            RepositoryName = "dispute"
	ReviewRepoName             RepositoryName = "review"
	APIKeyRepoName             RepositoryName = "api_key"
)
