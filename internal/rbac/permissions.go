package rbac

// Permission keys, grouped by functional module. The declaration order below
// is the canonical catalog order used by listings and diffs.
const (
	PermOrdersView   PermissionKey = "orders.view"
	PermOrdersCreate PermissionKey = "orders.create"
	PermOrdersEdit   PermissionKey = "orders.edit"
	PermOrdersDelete PermissionKey = "orders.delete"
	PermOrdersExport PermissionKey = "orders.export"

	PermInventoryView     PermissionKey = "inventory.view"
	PermInventoryEdit     PermissionKey = "inventory.edit"
	PermInventoryTransfer PermissionKey = "inventory.transfer"
	PermInventoryAdjust   PermissionKey = "inventory.adjust"

	PermDispatchView   PermissionKey = "dispatch.view"
	PermDispatchAssign PermissionKey = "dispatch.assign"
	PermDispatchTrack  PermissionKey = "dispatch.track"

	PermFeedView     PermissionKey = "feed.view"
	PermFeedPost     PermissionKey = "feed.post"
	PermFeedModerate PermissionKey = "feed.moderate"

	PermChatView     PermissionKey = "chat.view"
	PermChatSend     PermissionKey = "chat.send"
	PermChatModerate PermissionKey = "chat.moderate"

	PermTeamView        PermissionKey = "team.view"
	PermTeamInvite      PermissionKey = "team.invite"
	PermTeamRolesManage PermissionKey = "team.roles.manage"
	PermTeamRemove      PermissionKey = "team.remove"

	PermReportsView   PermissionKey = "reports.view"
	PermReportsExport PermissionKey = "reports.export"

	PermPlatformManage           PermissionKey = "platform.manage"
	PermPlatformBusinessesManage PermissionKey = "platform.businesses.manage"
	PermPlatformBillingManage    PermissionKey = "platform.billing.manage"
	PermPlatformImpersonate      PermissionKey = "platform.impersonate"
)

func catalogPermissions() []Permission {
	return []Permission{
		{Key: PermOrdersView, Module: "orders", Description: "View orders and order history"},
		{Key: PermOrdersCreate, Module: "orders", Description: "Create new orders"},
		{Key: PermOrdersEdit, Module: "orders", Description: "Edit existing orders"},
		{Key: PermOrdersDelete, Module: "orders", Description: "Cancel and delete orders"},
		{Key: PermOrdersExport, Module: "orders", Description: "Export orders to spreadsheet"},

		{Key: PermInventoryView, Module: "inventory", Description: "View stock levels and products"},
		{Key: PermInventoryEdit, Module: "inventory", Description: "Edit products and stock records"},
		{Key: PermInventoryTransfer, Module: "inventory", Description: "Transfer stock between warehouses"},
		{Key: PermInventoryAdjust, Module: "inventory", Description: "Post stock adjustments"},

		{Key: PermDispatchView, Module: "dispatch", Description: "View dispatch board and routes"},
		{Key: PermDispatchAssign, Module: "dispatch", Description: "Assign drivers and vehicles"},
		{Key: PermDispatchTrack, Module: "dispatch", Description: "Track shipments in transit"},

		{Key: PermFeedView, Module: "feed", Description: "Read the company feed"},
		{Key: PermFeedPost, Module: "feed", Description: "Post to the company feed"},
		{Key: PermFeedModerate, Module: "feed", Description: "Moderate and remove feed posts"},

		{Key: PermChatView, Module: "chat", Description: "Read chat conversations"},
		{Key: PermChatSend, Module: "chat", Description: "Send chat messages"},
		{Key: PermChatModerate, Module: "chat", Description: "Moderate chat rooms"},

		{Key: PermTeamView, Module: "team", Description: "View team members"},
		{Key: PermTeamInvite, Module: "team", Description: "Invite new team members"},
		{Key: PermTeamRolesManage, Module: "team", Description: "Change team member roles"},
		{Key: PermTeamRemove, Module: "team", Description: "Remove team members"},

		{Key: PermReportsView, Module: "reports", Description: "View business reports"},
		{Key: PermReportsExport, Module: "reports", Description: "Export reports"},

		{Key: PermPlatformManage, Module: "platform", Description: "Manage platform configuration", InfrastructureOnly: true},
		{Key: PermPlatformBusinessesManage, Module: "platform", Description: "Create, suspend and delete businesses", InfrastructureOnly: true},
		{Key: PermPlatformBillingManage, Module: "platform", Description: "Manage platform billing", InfrastructureOnly: true},
		{Key: PermPlatformImpersonate, Module: "platform", Description: "Impersonate business users for support", InfrastructureOnly: true},
	}
}
