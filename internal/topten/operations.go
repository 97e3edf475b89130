package topten

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Health probes the remote platform. Any 2xx is healthy.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.request(ctx, "health", http.MethodGet, pathHealth, requestOptions{})
	return err
}

// RegisterUser creates a remote user via NewRegister and returns its id.
// A non-positive id is reported by the caller, not here; the remote is
// known to answer 0 on certain rejections with a 2xx status.
func (c *Client) RegisterUser(ctx context.Context, req RegisterUserRequest, o Overrides) (int64, error) {
	return c.requestScalar(ctx, "create_user", pathNewRegister, req, o)
}

// CreateCart creates a remote cart via AddCartProductExternal and returns
// its id.
func (c *Client) CreateCart(ctx context.Context, req CreateCartRequest, o Overrides) (int64, error) {
	return c.requestScalar(ctx, "create_cart", pathAddCartProduct, req, o)
}

// CreatePayment opens a payment session via PaymentPlacetopay. The
// response carries its own success flag independent of the HTTP status;
// a false flag fails with the remote-supplied message. Response keys are
// matched case-insensitively because the remote's casing is inconsistent.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest, o Overrides) (*PaymentSession, error) {
	const op = "create_payment"

	body, err := c.request(ctx, op, http.MethodPost, pathPaymentSession, requestOptions{
		overrides: o,
		body:      req,
	})
	if err != nil {
		return nil, err
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &UnexpectedResponseError{Op: op, Reason: "not a JSON object", Body: snippet(body)}
	}
	normalized := lowercaseKeys(decoded)

	info, ok := normalized["successinfo"].(map[string]any)
	if !ok {
		return nil, &UnexpectedResponseError{Op: op, Reason: "missing success flag", Body: snippet(body)}
	}
	if success, _ := info["success"].(bool); !success {
		message, _ := info["message"].(string)
		if message == "" {
			message = "unknown error"
		}
		return nil, &SessionRejectedError{Message: message}
	}

	session := &PaymentSession{}
	if token, ok := normalized["token"].(string); ok {
		session.Token = token
	}
	if redirect, ok := normalized["urlexternal"].(string); ok {
		session.RedirectURL = redirect
	}
	if exp, ok := normalized["expirationutc"].(float64); ok {
		session.ExpirationUTC = int64(exp)
	}
	if acquirer, ok := normalized["idadquiria"].(float64); ok {
		session.AcquirerID = int64(acquirer)
	}

	return session, nil
}

// GetPayment retrieves raw payment data by id.
func (c *Client) GetPayment(ctx context.Context, paymentID string, o Overrides) (json.RawMessage, error) {
	path := pathPayments + "/" + url.PathEscape(paymentID)
	body, err := c.request(ctx, "get_payment", http.MethodGet, path, requestOptions{overrides: o})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// ProductsDetail fetches one page of the remote product catalog.
func (c *Client) ProductsDetail(ctx context.Context, req ProductsDetailRequest, o Overrides) ([]ProductDetail, error) {
	const op = "products_detail"

	if req.Page < 1 {
		req.Page = 1
	}
	if req.EntityID <= 0 {
		req.EntityID = c.resolver.EntityID()
	}

	body, err := c.request(ctx, op, http.MethodPost, pathProductsDetail, requestOptions{
		overrides: o,
		body:      req,
	})
	if err != nil {
		return nil, err
	}

	var decoded productsDetailResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &UnexpectedResponseError{Op: op, Reason: "not a products response", Body: snippet(body)}
	}

	return decoded.Products, nil
}
