package mcp

import "github.com/mark3labs/mcp-go/mcp"

var mirrorToolDef = mcp.NewTool("mirror_run",
	mcp.WithDescription("Mirror the game records of one or more players into the output directory. "+
		"Games already on disk are never downloaded again."),
	mcp.WithArray("names",
		mcp.Required(),
		mcp.Description("Player usernames to mirror"),
		mcp.WithStringItems(),
	),
	mcp.WithString("output_dir",
		mcp.Description("Directory receiving the game files and the store (default from config)"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum games to consider per player; negative means unbounded (default from config)"),
	),
	mcp.WithBoolean("stop_early",
		mcp.Description("Stop paging a player once a listing page yields nothing new (default true)"),
	),
	mcp.WithBoolean("backfill",
		mcp.Description("Record ledger rows for files that are already on disk"),
	),
)

var resolveToolDef = mcp.NewTool("identity_resolve",
	mcp.WithDescription("Resolve a player username to its numeric id, using the identity cache first."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Player username"),
	),
	mcp.WithString("output_dir",
		mcp.Description("Directory holding the store (default from config)"),
	),
)

var ledgerToolDef = mcp.NewTool("ledger_list",
	mcp.WithDescription("List mirrored games, newest first."),
	mcp.WithString("output_dir",
		mcp.Description("Directory holding the store (default from config)"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Page size (default 50, max 500)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Rows to skip"),
	),
	mcp.WithBoolean("bots",
		mcp.Description("true: only games against bots; false: only games between humans; omit for all"),
	),
)

var statusToolDef = mcp.NewTool("mirror_status",
	mcp.WithDescription("Compare the ledger with the files in the output directory."),
	mcp.WithString("output_dir",
		mcp.Description("Directory holding the store (default from config)"),
	),
)
