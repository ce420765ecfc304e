package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Descriptions are what the model reads to pick a tool.

var ToolAnalyzeToken = mcp.NewTool("analyze_token",
	mcp.WithDescription(
		"Assess the risk of an ERC-20 token contract. "+
			"Returns an overall safety score from 0 (extremely risky) to 100 (safest), a risk level "+
			"(Low/Medium/High/Extreme), liquidity, contract and transaction sub-scores, and recommendations. "+
			"Takes several seconds because it queries the chain, a block explorer and market data."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("Token contract address (e.g. '0xdAC17F958D2ee523a2206206994597C13D831ec7')")),
	mcp.WithString("network",
		mcp.Description("Network the token lives on. Defaults to the server's configured network."),
		mcp.Enum("ethereum", "polygon", "bsc")),
)

var ToolTokenHistory = mcp.NewTool("token_history",
	mcp.WithDescription(
		"List previous risk assessments of a token, most recent first. "+
			"Use this to see how a token's risk changed over time without running a new analysis."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("Token contract address")),
	mcp.WithString("network",
		mcp.Description("Only include assessments from this network"),
		mcp.Enum("ethereum", "polygon", "bsc")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of assessments to return (default 20, max 100)")),
)

var ToolListNetworks = mcp.NewTool("list_networks",
	mcp.WithDescription("List the networks tokens can be analyzed on, with their chain IDs."),
)
