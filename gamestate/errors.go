package gamestate

import "github.com/rotisserie/eris"

var (
	ErrEntityDoesNotExist                = eris.New("entity does not exist")
	ErrComponentNotOnEntity              = eris.New("component not on entity")
	ErrComponentAlreadyOnEntity          = eris.New("component already on entity")
	ErrEntityMustHaveAtLeastOneComponent = eris.New("entities must have at least 1 component")
	ErrComponentNotRegistered            = eris.New("component is not registered with this state")
	ErrResourceDoesNotExist              = eris.New("resource does not exist")
	ErrEntityIndexExhausted              = eris.New("entity index space exhausted")
)
