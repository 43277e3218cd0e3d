package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[InitializeMessage]      = (*InitializeCommand)(nil)
	_ gocmd.Commander[RefreshMessage]         = (*RefreshCommand)(nil)
	_ gocmd.Commander[InvalidateMessage]      = (*InvalidateCommand)(nil)
	_ gocmd.Commander[SetTenantMessage]       = (*SetTenantCommand)(nil)
	_ gocmd.Commander[AdoptCredentialMessage] = (*AdoptCredentialCommand)(nil)
	_ gocmd.Commander[ExecuteRequestMessage]  = (*ExecuteRequestCommand)(nil)
)
