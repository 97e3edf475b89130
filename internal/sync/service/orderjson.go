package service

import (
	"bytes"
	"encoding/json"
	"strings"

	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
)

// The order description travels inside the payment payload as a
// pre-encoded JSON string. Field names follow the remote platform's
// Spanish schema.

type orderJSONPayment struct {
	CurrencyID        int64  `json:"mone_Id"`
	Installments      int    `json:"installments"`
	CaptureDataIframe bool   `json:"captureDataIframe"`
	PaymentMethodRef  string `json:"paymentMethodId"`
	TokenPayment      string `json:"tokenPayment"`
	FullName          string `json:"nombreCompletoPago"`
	Document          string `json:"documento"`
	DocumentType      string `json:"tipoDocumento"`
	Email             string `json:"email"`
	PaymentConceptID  int64  `json:"coge_Id_Pago"`
	PaymentMethodID   int64  `json:"mepa_Id"`
	Valid             bool   `json:"valid"`
}

type orderJSONBilling struct {
	FirstName      string `json:"nombres"`
	LastName       string `json:"apellidos"`
	DocumentType   string `json:"tipoDocumento"`
	DocumentNumber string `json:"numeroDocumento"`
	Phone          string `json:"telefono"`
	PhonePrefix    string `json:"indicativo"`
	RUT            bool   `json:"rut"`
	CountryID      int64  `json:"idPais"`
	CompanyName    string `json:"razonSocial"`
	RUTNumber      string `json:"numRut"`
}

type orderJSONDelivery struct {
	BranchID     int64    `json:"sucu_Id"`
	PickupPerson string   `json:"personaRetiro"`
	AddressID    *int64   `json:"direccionId"`
	LogisticsID  *int64   `json:"coes_Id_Logistica"`
	TimeWindow   string   `json:"ventanaHoraria"`
	ZoneID       *int64   `json:"coma_Id"`
	ShippingDays []string `json:"DiasEnvio"`
}

type orderJSONProduct struct {
	ProductID    int64  `json:"idProducto"`
	IsGift       bool   `json:"esRegalo"`
	GiftQuantity int    `json:"cantidadEsRegalo"`
	Terms        string `json:"terminosSeleccionados"`
	Quantity     int    `json:"cantidad"`
}

type orderJSONRequest struct {
	Payment    orderJSONPayment   `json:"infoPago"`
	Billing    orderJSONBilling   `json:"facturacionPedido"`
	Delivery   orderJSONDelivery  `json:"entregaUsuario"`
	CustomerIP string             `json:"ipUsuario"`
	ExtraInfo  string             `json:"infoExtra"`
	CurrencyID int64              `json:"mone_Id"`
	CouponCode string             `json:"codigoCupon"`
	UserID     int64              `json:"usua_Cod"`
	Origin     string             `json:"origen"`
	Products   []orderJSONProduct `json:"productosPedido"`
}

type orderJSON struct {
	Request   orderJSONRequest `json:"request"`
	CartItems struct{}         `json:"cartItems"`
}

// currencyID maps an ISO currency code to the remote currency id.
// Unknown currencies fall back to the local one.
func currencyID(currency string) int64 {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "USD":
		return 1
	case "UYU":
		return 2
	default:
		return 2
	}
}

func (s *Service) buildOrderJSON(order *orderdomain.Order, remoteUserID int64, lines []resolvedLine) (string, error) {
	documentType := strings.TrimSpace(order.DocumentType)
	if documentType == "" {
		documentType = s.cfg.Checkout.DefaultDocument
	}
	if documentType == "" {
		documentType = "Cédula de identidad"
	}

	fullName := strings.TrimSpace(order.FirstName + " " + order.LastName)
	prefix := order.PhonePrefix
	if prefix == "" {
		prefix = s.cfg.Checkout.PhonePrefix
	}

	products := make([]orderJSONProduct, 0, len(lines))
	for _, line := range lines {
		products = append(products, orderJSONProduct{
			ProductID: line.RemoteProductID,
			Terms:     line.Terms,
			Quantity:  line.Quantity,
		})
	}

	payload := orderJSON{
		Request: orderJSONRequest{
			Payment: orderJSONPayment{
				CurrencyID:       currencyID(order.Currency),
				FullName:         fullName,
				Document:         order.DocumentNumber,
				DocumentType:     documentType,
				Email:            order.Email,
				PaymentConceptID: s.paymentConceptID(),
				PaymentMethodID:  s.paymentMethodID(),
				Valid:            true,
			},
			Billing: orderJSONBilling{
				FirstName:      order.FirstName,
				LastName:       order.LastName,
				DocumentType:   documentType,
				DocumentNumber: order.DocumentNumber,
				Phone:          order.Phone,
				PhonePrefix:    prefix,
				CountryID:      s.cfg.Checkout.CountryID,
			},
			Delivery: orderJSONDelivery{
				BranchID:     s.branchID(),
				PickupPerson: strings.ToUpper(fullName),
				ShippingDays: []string{},
			},
			CustomerIP: order.CustomerIP,
			ExtraInfo:  order.Address,
			CurrencyID: currencyID(order.Currency),
			UserID:     remoteUserID,
			Origin:     s.cfg.Checkout.OriginLabel,
			Products:   products,
		},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
