package errs

const (
	ServerInternalError = 500

	// 参数类
	InvalidArgumentError = 1001

	// 存储类
	StorageTransactionError = 2001

	// 远程调用类；3004 归属于 3000
	RemoteProcedureError         = 3000
	RemoteProcedureNotFoundError = 3004
)

var (
	ErrInternalServer          = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrInvalidArgument         = NewCodeError(InvalidArgumentError, "InvalidArgument")
	ErrStorageTransaction      = NewCodeError(StorageTransactionError, "StorageTransactionError")
	ErrRemoteProcedure         = NewCodeError(RemoteProcedureError, "RemoteProcedureError")
	ErrRemoteProcedureNotFound = NewCodeError(RemoteProcedureNotFoundError, "RemoteProcedureNotFound")
)

func init() {
	_ = DefaultCodeRelation.Add(RemoteProcedureError, RemoteProcedureNotFoundError)
}
