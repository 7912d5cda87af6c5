package types

// ListFilesQuery listFilesPage 查询参数.
type ListFilesQuery struct {
	TagID      string `form:"tagId"`
	Cursor     string `form:"cursor"`
	Limit      *int   `form:"limit"`
	OrderField string `form:"orderField"`
	Order      string `form:"order"`
}

// ListTrashQuery listTrashedPage 查询参数.
type ListTrashQuery struct {
	Cursor     string `form:"cursor"`
	Limit      *int   `form:"limit"`
	OrderField string `form:"orderField"`
	Order      string `form:"order"`
}

// IDsRequest 批量操作的文件 id.
type IDsRequest struct {
	IDs []string `json:"ids" rule:"required,min=1,max=500,dive,required"`
}

// CountResponse 批量操作影响的行数，没有匹配时为 0.
type CountResponse struct {
	Count int64 `json:"count"`
}
