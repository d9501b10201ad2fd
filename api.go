package confluxfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

// uploads can carry large files
const uploadHttpTimeout = 300 * time.Second

func defaultClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

func uploadClient() *http.Client {
	client := defaultClient()
	client.Timeout = uploadHttpTimeout
	return client
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any]() (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R])
	apiCallback := NewApiCallback[R](func(result R, err error) {
		c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return apiCallback, c
}

type ConfluxApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string

	byJwt string
}

func NewConfluxApi(apiUrl string) *ConfluxApi {
	return NewConfluxApiWithContext(context.Background(), apiUrl)
}

func NewConfluxApiWithContext(ctx context.Context, apiUrl string) *ConfluxApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &ConfluxApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
	}
}

// this gets attached to api calls that need it
func (self *ConfluxApi) SetByJwt(byJwt string) {
	self.byJwt = byJwt
}

func (self *ConfluxApi) Close() {
	self.cancel()
}

type AuthLoginCallback apiCallback[*AuthLoginResult]

// `dto.LoginRequest`
type AuthLoginArgs struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// `dto.AuthResponse`
type AuthLoginResult struct {
	Token    string                `json:"token,omitempty"`
	UserId   *Id                   `json:"userId,omitempty"`
	Username string                `json:"username,omitempty"`
	Email    string                `json:"email,omitempty"`
	Error    *AuthLoginResultError `json:"error,omitempty"`
}

type AuthLoginResultError struct {
	Message string `json:"message"`
}

func (self *ConfluxApi) AuthLogin(authLogin *AuthLoginArgs, callback AuthLoginCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/api/auth/login", self.apiUrl),
		authLogin,
		self.byJwt,
		&AuthLoginResult{},
		callback,
	)
}

func (self *ConfluxApi) AuthLoginSync(authLogin *AuthLoginArgs) (*AuthLoginResult, error) {
	return post(
		self.ctx,
		fmt.Sprintf("%s/api/auth/login", self.apiUrl),
		authLogin,
		self.byJwt,
		&AuthLoginResult{},
		NewNoopApiCallback[*AuthLoginResult](),
	)
}

type AuthRegisterCallback apiCallback[*AuthRegisterResult]

// `dto.RegisterRequest`
type AuthRegisterArgs struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRegisterResult struct {
	Token    string                   `json:"token,omitempty"`
	UserId   *Id                      `json:"userId,omitempty"`
	Username string                   `json:"username,omitempty"`
	Email    string                   `json:"email,omitempty"`
	Error    *AuthRegisterResultError `json:"error,omitempty"`
}

type AuthRegisterResultError struct {
	Message string `json:"message"`
}

func (self *ConfluxApi) AuthRegister(authRegister *AuthRegisterArgs, callback AuthRegisterCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/api/auth/register", self.apiUrl),
		authRegister,
		self.byJwt,
		&AuthRegisterResult{},
		callback,
	)
}

func (self *ConfluxApi) AuthRegisterSync(authRegister *AuthRegisterArgs) (*AuthRegisterResult, error) {
	return post(
		self.ctx,
		fmt.Sprintf("%s/api/auth/register", self.apiUrl),
		authRegister,
		self.byJwt,
		&AuthRegisterResult{},
		NewNoopApiCallback[*AuthRegisterResult](),
	)
}

type FileTreeCallback apiCallback[*FileTreeResult]

// the canonical full-tree read. The authoritative reconciliation
// source for the tree store.
type FileTreeResult struct {
	Nodes []*Node `json:"nodes"`
}

func (self *ConfluxApi) FileTree(callback FileTreeCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/api/files/tree", self.apiUrl),
		self.byJwt,
		&FileTreeResult{},
		callback,
	)
}

func (self *ConfluxApi) FileTreeSync() (*FileTreeResult, error) {
	return get(
		self.ctx,
		fmt.Sprintf("%s/api/files/tree", self.apiUrl),
		self.byJwt,
		&FileTreeResult{},
		NewNoopApiCallback[*FileTreeResult](),
	)
}

type CreateFolderCallback apiCallback[*CreateFolderResult]

// `dto.CreateFolderRequest`
type CreateFolderArgs struct {
	Name     string `json:"name"`
	ParentId *Id    `json:"parentId,omitempty"`
}

type CreateFolderResult struct {
	Node *Node `json:"node,omitempty"`
}

func (self *ConfluxApi) CreateFolder(createFolder *CreateFolderArgs, callback CreateFolderCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/api/files/folder", self.apiUrl),
		createFolder,
		self.byJwt,
		&CreateFolderResult{},
		callback,
	)
}

func (self *ConfluxApi) CreateFolderSync(createFolder *CreateFolderArgs) (*CreateFolderResult, error) {
	return post(
		self.ctx,
		fmt.Sprintf("%s/api/files/folder", self.apiUrl),
		createFolder,
		self.byJwt,
		&CreateFolderResult{},
		NewNoopApiCallback[*CreateFolderResult](),
	)
}

type UploadFileCallback apiCallback[*UploadFileResult]

type UploadFileArgs struct {
	Name     string
	ParentId *Id
	Body     io.Reader
}

type UploadFileResult struct {
	Node *Node `json:"node,omitempty"`
}

func (self *ConfluxApi) UploadFile(uploadFile *UploadFileArgs, callback UploadFileCallback) {
	go postMultipart(
		self.ctx,
		fmt.Sprintf("%s/api/files/upload", self.apiUrl),
		uploadFile,
		self.byJwt,
		&UploadFileResult{},
		callback,
	)
}

func (self *ConfluxApi) UploadFileSync(uploadFile *UploadFileArgs) (*UploadFileResult, error) {
	return postMultipart(
		self.ctx,
		fmt.Sprintf("%s/api/files/upload", self.apiUrl),
		uploadFile,
		self.byJwt,
		&UploadFileResult{},
		NewNoopApiCallback[*UploadFileResult](),
	)
}

type RenameFileCallback apiCallback[*RenameFileResult]

// `dto.UpdateFileRequest`
type RenameFileArgs struct {
	FileId Id     `json:"-"`
	Name   string `json:"name"`
}

type RenameFileResult struct {
	Node *Node `json:"node,omitempty"`
}

func (self *ConfluxApi) RenameFile(renameFile *RenameFileArgs, callback RenameFileCallback) {
	go put(
		self.ctx,
		fmt.Sprintf("%s/api/files/%s", self.apiUrl, renameFile.FileId),
		renameFile,
		self.byJwt,
		&RenameFileResult{},
		callback,
	)
}

func (self *ConfluxApi) RenameFileSync(renameFile *RenameFileArgs) (*RenameFileResult, error) {
	return put(
		self.ctx,
		fmt.Sprintf("%s/api/files/%s", self.apiUrl, renameFile.FileId),
		renameFile,
		self.byJwt,
		&RenameFileResult{},
		NewNoopApiCallback[*RenameFileResult](),
	)
}

type MoveFileCallback apiCallback[*MoveFileResult]

// `dto.MoveFileRequest`
type MoveFileArgs struct {
	FileId      Id  `json:"-"`
	NewParentId *Id `json:"newParentId"`
}

type MoveFileResult struct {
	Node *Node `json:"node,omitempty"`
}

func (self *ConfluxApi) MoveFile(moveFile *MoveFileArgs, callback MoveFileCallback) {
	go put(
		self.ctx,
		fmt.Sprintf("%s/api/files/%s/move", self.apiUrl, moveFile.FileId),
		moveFile,
		self.byJwt,
		&MoveFileResult{},
		callback,
	)
}

func (self *ConfluxApi) MoveFileSync(moveFile *MoveFileArgs) (*MoveFileResult, error) {
	return put(
		self.ctx,
		fmt.Sprintf("%s/api/files/%s/move", self.apiUrl, moveFile.FileId),
		moveFile,
		self.byJwt,
		&MoveFileResult{},
		NewNoopApiCallback[*MoveFileResult](),
	)
}

type CopyFileCallback apiCallback[*CopyFileResult]

// `dto.CopyFileRequest`
type CopyFileArgs struct {
	FileId         Id  `json:"-"`
	TargetParentId *Id `json:"targetParentId"`
}

type CopyFileResult struct {
	Node *Node `json:"node,omitempty"`
}

func (self *ConfluxApi) CopyFile(copyFile *CopyFileArgs, callback CopyFileCallback) {
	go post(
		self.ctx,
		fmt.Sprintf("%s/api/files/%s/copy", self.apiUrl, copyFile.FileId),
		copyFile,
		self.byJwt,
		&CopyFileResult{},
		callback,
	)
}

func (self *ConfluxApi) CopyFileSync(copyFile *CopyFileArgs) (*CopyFileResult, error) {
	return post(
		self.ctx,
		fmt.Sprintf("%s/api/files/%s/copy", self.apiUrl, copyFile.FileId),
		copyFile,
		self.byJwt,
		&CopyFileResult{},
		NewNoopApiCallback[*CopyFileResult](),
	)
}

type DeleteFileCallback apiCallback[*DeleteFileResult]

type DeleteFileArgs struct {
	FileId Id `json:"-"`
}

type DeleteFileResult struct {
}

func (self *ConfluxApi) DeleteFile(deleteFile *DeleteFileArgs, callback DeleteFileCallback) {
	go del(
		self.ctx,
		fmt.Sprintf("%s/api/files/%s", self.apiUrl, deleteFile.FileId),
		self.byJwt,
		&DeleteFileResult{},
		callback,
	)
}

func (self *ConfluxApi) DeleteFileSync(deleteFile *DeleteFileArgs) (*DeleteFileResult, error) {
	return del(
		self.ctx,
		fmt.Sprintf("%s/api/files/%s", self.apiUrl, deleteFile.FileId),
		self.byJwt,
		&DeleteFileResult{},
		NewNoopApiCallback[*DeleteFileResult](),
	)
}

// DownloadFile streams the file body to `out`.
func (self *ConfluxApi) DownloadFileSync(fileId Id, out io.Writer) error {
	req, err := http.NewRequestWithContext(
		self.ctx,
		"GET",
		fmt.Sprintf("%s/api/files/%s/download", self.apiUrl, fileId),
		nil,
	)
	if err != nil {
		return err
	}
	if self.byJwt != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", self.byJwt))
	}

	client := uploadClient()
	r, err := client.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()

	if http.StatusOK != r.StatusCode {
		responseBodyBytes, _ := io.ReadAll(r.Body)
		return errors.New(strings.TrimSpace(string(responseBodyBytes)))
	}

	_, err = io.Copy(out, r.Body)
	return err
}

func post[R any](ctx context.Context, url string, args any, byJwt string, result R, callback apiCallback[R]) (R, error) {
	return request(ctx, "POST", url, args, byJwt, result, callback)
}

func put[R any](ctx context.Context, url string, args any, byJwt string, result R, callback apiCallback[R]) (R, error) {
	return request(ctx, "PUT", url, args, byJwt, result, callback)
}

func del[R any](ctx context.Context, url string, byJwt string, result R, callback apiCallback[R]) (R, error) {
	return request(ctx, "DELETE", url, nil, byJwt, result, callback)
}

func request[R any](ctx context.Context, method string, url string, args any, byJwt string, result R, callback apiCallback[R]) (R, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "application/json")

	if byJwt != "" {
		auth := fmt.Sprintf("Bearer %s", byJwt)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if !is2xx(r.StatusCode) {
		// the response body is the error message
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	if 0 < len(responseBodyBytes) {
		err = json.Unmarshal(responseBodyBytes, &result)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	callback.Result(result, nil)
	return result, nil
}

func get[R any](ctx context.Context, url string, byJwt string, result R, callback apiCallback[R]) (R, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	if byJwt != "" {
		auth := fmt.Sprintf("Bearer %s", byJwt)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	responseBodyBytes, err := io.ReadAll(r.Body)
	r.Body.Close()

	if !is2xx(r.StatusCode) {
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}

func postMultipart[R any](ctx context.Context, url string, uploadFile *UploadFileArgs, byJwt string, result R, callback apiCallback[R]) (R, error) {
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	part, err := writer.CreateFormFile("file", uploadFile.Name)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	if _, err := io.Copy(part, uploadFile.Body); err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	if uploadFile.ParentId != nil {
		if err := writer.WriteField("parentId", uploadFile.ParentId.String()); err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}
	if err := writer.Close(); err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, &requestBody)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", writer.FormDataContentType())

	if byJwt != "" {
		auth := fmt.Sprintf("Bearer %s", byJwt)
		req.Header.Add("Authorization", auth)
	}

	client := uploadClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if !is2xx(r.StatusCode) {
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	if 0 < len(responseBodyBytes) {
		err = json.Unmarshal(responseBodyBytes, &result)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	callback.Result(result, nil)
	return result, nil
}

func is2xx(statusCode int) bool {
	return http.StatusOK <= statusCode && statusCode < http.StatusMultipleChoices
}
